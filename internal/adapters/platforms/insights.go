package platforms

import "github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"

// graphInsightsResponse is the Graph API insights shape shared by Facebook
// post insights and Instagram media insights.
type graphInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value any `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// normalizeGraphInsights maps metric names through the platform's canonical
// table; anything unmapped lands verbatim in PlatformMetrics so no platform
// data is dropped.
func normalizeGraphInsights(resp graphInsightsResponse, metricMap map[string]func(*domain.Insights, int64)) domain.Insights {
	out := domain.Insights{PlatformMetrics: map[string]any{}}
	for _, metric := range resp.Data {
		if len(metric.Values) == 0 {
			continue
		}
		value := metric.Values[0].Value
		if set, ok := metricMap[metric.Name]; ok {
			set(&out, toInt64(value))
			continue
		}
		out.PlatformMetrics[metric.Name] = value
	}
	if len(out.PlatformMetrics) == 0 {
		out.PlatformMetrics = nil
	}
	return out
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
