// Package di builds the dependency container that HTTP handlers resolve their services from.
package di

import (
	"context"
	"reflect"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
)

// NewContainer creates and registers a container with the given id. Container diagnostics go to logger.
func NewContainer(id string, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	return ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		ConstructorFuncName:      "Constructor",
		InjectTagName:            "inject",
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:   "ectoinject",
			LogLevel: loglevel.WARN,
			Enabled:  true,
			LogFunc: func(ctx context.Context, level, msg string) {
				if level == loglevel.WARN {
					logger.WithContext(ctx).Warn(msg)
					return
				}
				logger.WithContext(ctx).Debug(msg)
			},
		},
	})
}

// Register adds instance to the container under type T. A nil instance is skipped so optional
// services stay unresolvable instead of resolving to nil.
func Register[T any](container ectocontainer.DIContainer, instance T) error {
	if isNil(instance) {
		return nil
	}
	return ectoinject.RegisterInstance[T](container, instance)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
