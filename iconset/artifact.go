package iconset

import "time"

// Warning codes recorded in Metadata.
const (
	// WarningMatteMissing: background removal was requested without a matte.
	WarningMatteMissing = "matte_missing"
	// WarningContainerSkipped: packing was requested but no size fits a container.
	WarningContainerSkipped = "container_skipped"
	// WarningContainerFailed: packing was requested and the encoder failed.
	WarningContainerFailed = "container_failed"
)

// Warning is a non-fatal problem encountered during a run.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata describes how an ArtifactSet was produced.
type Metadata struct {
	Source         string     `json:"source,omitempty"`
	GeneratedAt    time.Time  `json:"generated_at"`
	Config         Config     `json:"config"`
	Warnings       []Warning  `json:"warnings,omitempty"`
	ContainerSizes []SizeSpec `json:"container_sizes,omitempty"`
}

// ArtifactSet is the result of a Builder run. It is not modified after Run
// returns.
type ArtifactSet struct {
	// Images maps each SizeSpec label to its PNG bytes.
	Images map[string][]byte `json:"-"`
	// Sizes lists the produced sizes in target order.
	Sizes []SizeSpec `json:"sizes"`
	// Container holds the packed icon container, nil when none was produced.
	Container []byte `json:"-"`
	// Metadata describes the run.
	Metadata Metadata `json:"metadata"`
}

// HasContainer reports whether a container was packed.
func (a *ArtifactSet) HasContainer() bool {
	return len(a.Container) > 0
}

// HasWarning reports whether a warning with the given code was recorded.
func (a *ArtifactSet) HasWarning(code string) bool {
	for _, w := range a.Metadata.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
