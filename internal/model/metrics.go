package model

// BucketFormat is the day layout used for analytics buckets and ranges.
const BucketFormat = "2006-01-02"

type Datapoint struct {
	Bucket string `json:"bucket"`
	Value  int    `json:"value"`
}

type Timeseries []Datapoint

// Metrics maps a dimension (connections, events, objects, users) to its
// day-bucketed series.
type Metrics map[string]Timeseries

const (
	DimensionConnections = "connections"
	DimensionEvents      = "events"
	DimensionObjects     = "objects"
	DimensionUsers       = "users"
)
