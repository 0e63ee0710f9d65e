package registry

// Service is a component whose lifecycle is managed by the service registry.
type Service interface {
	Start() error
	Stop() error
}
