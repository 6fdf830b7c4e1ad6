package rating

// Bucket is the display classification of a rating value.
type Bucket int

const (
	BucketVeryBad Bucket = iota
	BucketBad
	BucketBelowAverage
	BucketAverage
	BucketAboveAverage
	BucketGood
	BucketVeryGood
	BucketGreat
	BucketUnicum
)

// bucketThresholds are the ascending upper bounds of every bucket except
// the last, which catches everything at or above the final threshold.
var bucketThresholds = []float64{300, 700, 900, 1000, 1100, 1200, 1400, 1800}

var bucketNames = []string{
	"very_bad",
	"bad",
	"below_average",
	"average",
	"above_average",
	"good",
	"very_good",
	"great",
	"unicum",
}

var bucketColors = []string{
	"#930D0D",
	"#CD3333",
	"#CC7A00",
	"#CCB800",
	"#849B24",
	"#4D7326",
	"#4099BF",
	"#3972C6",
	"#793DB6",
}

// Classify maps a rating to its bucket. Total over all reals: negative
// and arbitrarily large values land in the outermost buckets.
func Classify(r float64) Bucket {
	for i, limit := range bucketThresholds {
		if r < limit {
			return Bucket(i)
		}
	}
	return BucketUnicum
}

func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return "unknown"
	}
	return bucketNames[b]
}

// Color returns the display color associated with the bucket.
func (b Bucket) Color() string {
	if b < 0 || int(b) >= len(bucketColors) {
		return bucketColors[0]
	}
	return bucketColors[b]
}
