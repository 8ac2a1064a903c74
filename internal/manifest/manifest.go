// Package manifest loads declarative DNS record manifests, one record per
// file, and normalizes them into the desired state fed to reconciliation.
package manifest

// File is the on-disk manifest schema. Full validation (date formats,
// maintainer contacts, proxied rules per type) is a separate upstream pass;
// the loader only needs enough structure to extract a record.
type File struct {
	Meta        Meta         `yaml:"meta"`
	Record      RecordSpec   `yaml:"record"`
	Maintainers []Maintainer `yaml:"maintainers"`
}

type Meta struct {
	Owner        string `yaml:"owner"`
	Purpose      string `yaml:"purpose"`
	RegisteredAt string `yaml:"registered_at"`
	ValidUntil   string `yaml:"valid_until"`
}

type RecordSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Value    string `yaml:"value"`
	TTL      int    `yaml:"ttl"`
	Proxied  *bool  `yaml:"proxied"`
	Priority *int   `yaml:"priority"`
	Comment  string `yaml:"comment"`
}

type Maintainer struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	URL   string `yaml:"url"`
}

// Record is the desired state extracted from one manifest file. It never
// carries a provider id.
type Record struct {
	Type       string
	Name       string
	Content    string
	TTL        int
	Proxied    *bool
	Priority   *int
	Comment    string
	SourceFile string
}

// Key is the identity used to join desired and live sets.
func (r Record) Key() string {
	return r.Type + "/" + r.Name
}
