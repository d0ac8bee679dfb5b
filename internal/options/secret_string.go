package options

// SecretString holds a credential taken from an option. It never prints its
// value, so configs can be debug-logged with %#v.
type SecretString struct {
	s *string
}

func NewSecretString(s string) SecretString {
	return SecretString{s: &s}
}

func (s SecretString) GoString() string {
	return `"` + s.String() + `"`
}

func (s SecretString) String() string {
	if s.s == nil || len(*s.s) == 0 {
		return ``
	}
	return `**redacted**`
}

func (s *SecretString) Unwrap() string {
	if s.s == nil {
		return ""
	}
	return *s.s
}
