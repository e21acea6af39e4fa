package pipeline

// Bucket names a display sub-section within one stage.
type Bucket string

const (
	BucketActive   Bucket = "active"
	BucketAdvanced Bucket = "advanced"
	BucketArchived Bucket = "archived"
)

// Buckets holds a stage's candidates split by status.
type Buckets struct {
	Active   []Application `json:"active"`
	Advanced []Application `json:"advanced"`
	Archived []Application `json:"archived"`
}

// Section is one non-empty bucket prepared for display.
type Section struct {
	Bucket       Bucket        `json:"bucket"`
	Applications []Application `json:"applications"`
}

// BucketFor returns the sub-bucket a status falls into.
func BucketFor(s Status) Bucket {
	switch s {
	case StatusRejected:
		return BucketArchived
	case StatusShortlisted, StatusDownloaded:
		return BucketAdvanced
	default:
		return BucketActive
	}
}

// Categorize splits the candidates of one stage into sub-buckets.
// Input order is preserved within each bucket. Empty buckets are empty,
// non-nil slices.
func Categorize(apps []Application) Buckets {
	b := Buckets{Active: []Application{}, Advanced: []Application{}, Archived: []Application{}}
	for _, a := range apps {
		switch BucketFor(a.Status) {
		case BucketArchived:
			b.Archived = append(b.Archived, a)
		case BucketAdvanced:
			b.Advanced = append(b.Advanced, a)
		default:
			b.Active = append(b.Active, a)
		}
	}
	return b
}

// Sections returns only the non-empty buckets, in Active, Advanced, Archived order.
func (b Buckets) Sections() []Section {
	var out []Section
	for _, s := range []Section{
		{Bucket: BucketActive, Applications: b.Active},
		{Bucket: BucketAdvanced, Applications: b.Advanced},
		{Bucket: BucketArchived, Applications: b.Archived},
	} {
		if len(s.Applications) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Flat reports whether the stage should render as a plain list, which is the
// case when fewer than two buckets have members.
func (b Buckets) Flat() bool {
	return len(b.Sections()) < 2
}
