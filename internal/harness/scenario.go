package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadScenario reads and validates a scenario file.
// Unknown fields are rejected so typos in scenario files fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("scenario is empty")
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, st := range s.Steps {
		if !knownOps[st.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
		}
		if err := validateStep(st, bound); err != nil {
			return fmt.Errorf("steps[%d] (%s): %w", i, st.Op, err)
		}
		if st.As != "" {
			if st.Op != OpCreate {
				return fmt.Errorf("steps[%d]: as is only valid on create", i)
			}
			bound[st.As] = true
		}
	}
	return nil
}

func validateStep(st Step, bound map[string]bool) error {
	need := func(field, v string) error {
		if v == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	ref := func(field, v string) error {
		if err := need(field, v); err != nil {
			return err
		}
		if name, ok := strings.CutPrefix(v, "$"); ok && !bound[name] {
			return fmt.Errorf("%s references unbound name %q", field, name)
		}
		return nil
	}

	switch st.Op {
	case OpCreate:
		if st.Draft == nil {
			return fmt.Errorf("draft is required")
		}
		return need("user", st.User)
	case OpGet, OpRemove:
		return ref("listing", st.Listing)
	case OpSetStatus:
		if err := ref("listing", st.Listing); err != nil {
			return err
		}
		return need("status", st.Status)
	case OpToggle:
		if err := need("user", st.User); err != nil {
			return err
		}
		if st.Listing == "" {
			// An empty id is a legitimate input to test rejection.
			return nil
		}
		return ref("listing", st.Listing)
	case OpFavorites:
		return need("user", st.User)
	case OpSend, OpHistory:
		if err := need("user", st.User); err != nil {
			return err
		}
		if err := need("recipient", st.Recipient); err != nil {
			return err
		}
		return ref("listing", st.Listing)
	}
	return nil
}
