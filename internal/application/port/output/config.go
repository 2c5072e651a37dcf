package output

type ConfigPort interface {
	Get(key string) string
	GetBool(key string, defaultValue bool) bool
	GetWithDefault(key string, defaultValue string) string
}
