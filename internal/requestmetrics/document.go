package requestmetrics

import "time"

const topN = 10

// Document is the persisted request metrics aggregate.
type Document struct {
	Requests    Requests    `json:"requests"`
	Performance Performance `json:"performance"`
	Errors      Errors      `json:"errors"`
	LastUpdated *time.Time  `json:"lastUpdated"`
}

type Requests struct {
	Total    int64            `json:"total"`
	ByMethod map[string]int64 `json:"byMethod"`
	ByRoute  map[string]int64 `json:"byRoute"`
	ByStatus map[string]int64 `json:"byStatus"`
	ByHour   map[string]int64 `json:"byHour"`
}

type Performance struct {
	TotalResponseTime   float64  `json:"totalResponseTime"`
	AverageResponseTime float64  `json:"averageResponseTime"`
	SlowestRequests     []Sample `json:"slowestRequests"`
	FastestRequests     []Sample `json:"fastestRequests"`
}

type Errors struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	ByRoute  map[string]int64 `json:"byRoute"`
	Recent   []Sample         `json:"recent"`
}

type Sample struct {
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	Status     int       `json:"status"`
	DurationMs float64   `json:"durationMs"`
	At         time.Time `json:"at"`
}

func EmptyDocument() Document {
	return Document{
		Requests: Requests{
			ByMethod: map[string]int64{},
			ByRoute:  map[string]int64{},
			ByStatus: map[string]int64{},
			ByHour:   map[string]int64{},
		},
		Performance: Performance{
			SlowestRequests: []Sample{},
			FastestRequests: []Sample{},
		},
		Errors: Errors{
			ByStatus: map[string]int64{},
			ByRoute:  map[string]int64{},
			Recent:   []Sample{},
		},
	}
}

// ensureMaps repairs documents written before a dimension existed or by
// tools that omit empty collections.
func (d *Document) ensureMaps() {
	if d.Requests.ByMethod == nil {
		d.Requests.ByMethod = map[string]int64{}
	}
	if d.Requests.ByRoute == nil {
		d.Requests.ByRoute = map[string]int64{}
	}
	if d.Requests.ByStatus == nil {
		d.Requests.ByStatus = map[string]int64{}
	}
	if d.Requests.ByHour == nil {
		d.Requests.ByHour = map[string]int64{}
	}
	if d.Errors.ByStatus == nil {
		d.Errors.ByStatus = map[string]int64{}
	}
	if d.Errors.ByRoute == nil {
		d.Errors.ByRoute = map[string]int64{}
	}
	if d.Performance.SlowestRequests == nil {
		d.Performance.SlowestRequests = []Sample{}
	}
	if d.Performance.FastestRequests == nil {
		d.Performance.FastestRequests = []Sample{}
	}
	if d.Errors.Recent == nil {
		d.Errors.Recent = []Sample{}
	}
}
