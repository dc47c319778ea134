package event

import "github.com/kairei-project/kairei/value"

// ParamSpec documents one expected parameter of an event kind, used by
// Registry.Validate to catch malformed Custom events early (§4.6 "Event
// registry").
type ParamSpec struct {
	Name     string
	Kind     value.Kind
	Required bool
}

// Registry holds the parameter schema for every known event kind,
// including Custom event names registered by DSL authors via `emit`.
type Registry struct {
	schemas map[string][]ParamSpec
}

// NewRegistry seeds a Registry with the built-in event kinds' schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: map[string][]ParamSpec{}}
	r.Register(string(KindTick), nil)
	r.Register(string(KindRequest), nil)
	r.Register(string(KindResponseSuccess), []ParamSpec{{Name: "value", Required: false}})
	r.Register(string(KindResponseFailure), []ParamSpec{{Name: "error", Kind: value.KindError, Required: true}})
	r.Register(string(KindFeatureStatusUpdated), nil)
	r.Register(string(KindFeatureFailure), []ParamSpec{{Name: "error", Kind: value.KindError, Required: true}})
	return r
}

// Register declares (or overwrites) the schema for an event kind or
// `emit`-defined custom event name.
func (r *Registry) Register(name string, schema []ParamSpec) {
	r.schemas[name] = schema
}

// Schema returns the declared schema for name, if any.
func (r *Registry) Schema(name string) ([]ParamSpec, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Validate checks ev's parameters against the registered schema for its
// kind (Custom events are looked up by Name). Unknown Custom events are not
// an error — `emit` may introduce one ad hoc — only declared-and-violated
// schemas are.
func (r *Registry) Validate(ev Event) error {
	key := string(ev.Type.Kind)
	if ev.Type.Kind == KindCustom {
		key = ev.Type.Name
	}
	schema, ok := r.schemas[key]
	if !ok {
		return nil
	}
	for _, spec := range schema {
		v, present := ev.Parameters[spec.Name]
		if !present {
			if spec.Required {
				return &SchemaError{EventKey: key, Param: spec.Name, Message: "missing required parameter"}
			}
			continue
		}
		if spec.Kind != 0 && v.Kind() != spec.Kind {
			return &SchemaError{EventKey: key, Param: spec.Name, Message: "expected " + spec.Kind.String() + ", got " + v.Kind().String()}
		}
	}
	return nil
}

// SchemaError reports a Registry.Validate failure.
type SchemaError struct {
	EventKey string
	Param    string
	Message  string
}

func (e *SchemaError) Error() string {
	return "event " + e.EventKey + " parameter " + e.Param + ": " + e.Message
}
