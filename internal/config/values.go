package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StepsFromValue normalizes a decoded stage value. A stage may be a single
// command string, a single step object, or a list mixing both.
func StepsFromValue(v any) ([]Step, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		steps := make([]Step, 0, len(val))
		for i, item := range val {
			step, err := StepFromValue(item)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			steps = append(steps, step)
		}
		return steps, nil
	case []map[string]any:
		steps := make([]Step, 0, len(val))
		for i, item := range val {
			step, err := StepFromValue(item)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			steps = append(steps, step)
		}
		return steps, nil
	default:
		step, err := StepFromValue(v)
		if err != nil {
			return nil, err
		}
		return []Step{step}, nil
	}
}

// StepFromValue converts a plain command string or a step object into a Step.
func StepFromValue(v any) (Step, error) {
	switch val := v.(type) {
	case string:
		return Step{Command: val}, nil
	case map[string]any:
		return stepFromMap(val)
	default:
		return Step{}, fmt.Errorf("expected a command string or a step object, got %T", v)
	}
}

func stepFromMap(m map[string]any) (Step, error) {
	var step Step
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := m[key]
		var err error
		switch key {
		case "command":
			step.Command, err = asString(raw)
		case "dryRunCommand":
			step.DryRun, step.DryRunCommand, err = DryRunFromValue(raw)
		case "runFromRoot":
			step.RunFromRoot, err = asBool(raw)
		case "pipe":
			step.Pipe, err = asBool(raw)
		case "timeout":
			step.Timeout, err = DurationFromValue(raw)
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			return Step{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	if step.Command == "" {
		return Step{}, fmt.Errorf("command is required")
	}
	return step, nil
}

// DryRunFromValue maps the boolean-or-string dryRunCommand field into its
// tagged variant.
func DryRunFromValue(v any) (DryRunMode, string, error) {
	switch val := v.(type) {
	case nil:
		return DryRunReal, "", nil
	case bool:
		if val {
			return DryRunSkip, "", nil
		}
		return DryRunReal, "", nil
	case string:
		if strings.TrimSpace(val) == "" {
			return DryRunReal, "", fmt.Errorf("dry-run command must not be empty")
		}
		return DryRunOverride, val, nil
	default:
		return DryRunReal, "", fmt.Errorf("expected a bool or a command string, got %T", v)
	}
}

// DurationFromValue accepts a Go duration string or a number of seconds.
func DurationFromValue(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		if val == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, err
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case uint64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected a duration string or seconds, got %T", v)
	}
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a bool, got %T", v)
	}
	return b, nil
}
