package extension

// Config is the configuration mapping an extension is constructed with.
// It is the only channel an extension reads settings through; there is no
// ambient or global configuration state.
//
// Values commonly arrive from JSON or YAML decoding, so the numeric
// accessors tolerate float64 alongside int.
type Config map[string]any

// Get returns the raw value for key, or def when the key is absent.
func (c Config) Get(key string, def any) any {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// String returns the string value for key, or def when absent or not a
// string.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def when absent. JSON numbers
// decode as float64, so both forms are accepted.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean value for key, or def when absent or not a
// boolean.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// clone returns an independent shallow copy so one instance's view of its
// configuration cannot be mutated through another's.
func (c Config) clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
