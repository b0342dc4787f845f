package reporting

import (
	"github.com/restoledger/backend/internal/domain/olap"
)

type filterBody struct {
	FilterType  string   `json:"filterType"`
	PeriodType  string   `json:"periodType,omitempty"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	IncludeLow  *bool    `json:"includeLow,omitempty"`
	IncludeHigh *bool    `json:"includeHigh,omitempty"`
	Values      []string `json:"values,omitempty"`
}

type queryBody struct {
	ReportType       string                `json:"reportType"`
	BuildSummary     bool                  `json:"buildSummary"`
	GroupByRowFields []string              `json:"groupByRowFields"`
	AggregateFields  []string              `json:"aggregateFields"`
	Filters          map[string]filterBody `json:"filters"`
}

type queryResponse struct {
	Data []map[string]any `json:"data"`
}

func newQueryBody(reportType string, q olap.Query) queryBody {
	body := queryBody{
		ReportType:       reportType,
		GroupByRowFields: q.GroupBy,
		AggregateFields:  q.Aggregates,
		Filters:          make(map[string]filterBody, len(q.Filters)),
	}
	if body.AggregateFields == nil {
		body.AggregateFields = []string{}
	}
	inclusive := true
	for _, f := range q.Filters {
		switch f.Kind {
		case olap.FilterDateRange:
			body.Filters[f.Column] = filterBody{
				FilterType:  string(olap.FilterDateRange),
				PeriodType:  "CUSTOM",
				From:        f.FromDay(),
				To:          f.ToDay(),
				IncludeLow:  &inclusive,
				IncludeHigh: &inclusive,
			}
		case olap.FilterIncludeValues:
			body.Filters[f.Column] = filterBody{
				FilterType: string(olap.FilterIncludeValues),
				Values:     f.Values,
			}
		}
	}
	return body
}
