package reporting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/infrastructure/config"
)

// Config holds the connection settings for the upstream reporting API
type Config struct {
	// BaseURL is the server root, e.g. https://pos.example.com:443
	BaseURL string `validate:"required,url"`
	Login   string `validate:"required"`
	// Password is sent as its SHA-1 hex digest, never in clear text
	Password   string        `validate:"required"`
	ReportType string        `validate:"required"`
	Timeout    time.Duration `validate:"gt=0"`
	// TokenTTL bounds how long a session token is reused; the upstream expires sessions after about an hour
	TokenTTL          time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
}

// ErrInvalidConfig is returned for incomplete reporting settings
var ErrInvalidConfig = errors.New("reporting: invalid configuration")

var validate = validator.New()

// FromAppConfig maps the application config section
func FromAppConfig(cfg config.ReportingConfig) *Config {
	return &Config{
		BaseURL:           cfg.BaseURL,
		Login:             cfg.Login,
		Password:          cfg.Password,
		ReportType:        cfg.ReportType,
		Timeout:           cfg.Timeout,
		TokenTTL:          cfg.TokenTTL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

// Validate fills defaults and checks required fields
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ReportType == "" {
		c.ReportType = olap.ReportTypeSales
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 50 * time.Minute
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
