package schema

import "fmt"

// ValidateFunctional checks that a schema is acceptable for custom
// operator registration. These are design-time checks run once at
// registration; a failure aborts the registration.
//
// Accepted schemas are strictly functional: no in-place mutation, no
// view returns, at least one Tensor input, at least one output, and no
// parameter named "self".
func ValidateFunctional(s *Schema) error {
	if s.Kind() == KindMutable {
		return fmt.Errorf("custom operators do not support non-functional schemas. Got: %s", s)
	}
	for _, r := range s.Returns {
		if r.Alias != nil && !r.Alias.IsWrite {
			return fmt.Errorf("custom operators do not support view functions. Got: %s", s)
		}
	}
	if !s.HasTensorArg() {
		return fmt.Errorf("custom operators do not support schemas with no Tensor inputs. Got: %s", s)
	}
	if len(s.Returns) == 0 {
		return fmt.Errorf("custom operators do not support schemas with no outputs. Got: %s", s)
	}
	for _, a := range s.Args {
		if a.Name == "self" {
			return fmt.Errorf("custom operators do not support arguments named 'self'; please rename your argument. Got: %s", s)
		}
	}
	return nil
}
