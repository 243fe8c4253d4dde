package limiter

// Limits describes the throughput a text-generation backend tolerates.
// Zero values mean "unspecified".
type Limits struct {
	RPM int `json:"rpm" yaml:"rpm" mapstructure:"rpm"`
	TPM int `json:"tpm" yaml:"tpm" mapstructure:"tpm"`
}

// generous reports whether the backend advertises high throughput.
func (l Limits) generous() bool {
	return l.RPM > 5000 || l.TPM > 100000
}
