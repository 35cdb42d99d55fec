package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/localdoc/internal/store"
)

// Scenario seeds one bucket and runs queries against it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Bucket receives every document.
	Bucket string `yaml:"bucket"`

	// ACLRule is the CEL read rule used by queries with a principal.
	// Empty selects the built-in rule.
	ACLRule string `yaml:"acl_rule,omitempty"`

	// Documents are inserted in order before any query runs.
	Documents []JSONObject `yaml:"documents"`

	// Dirty lists ids inserted with the dirty sync state.
	Dirty []string `yaml:"dirty,omitempty"`

	Queries    []QueryStep `yaml:"queries"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// QueryStep runs one query and optionally checks its result.
type QueryStep struct {
	Name           string         `yaml:"name"`
	Filter         *JSONObject    `yaml:"filter,omitempty"`
	Order          []string       `yaml:"order,omitempty"`
	Skip           int            `yaml:"skip,omitempty"`
	Limit          *int           `yaml:"limit,omitempty"`
	IncludeDeleted bool           `yaml:"include_deleted,omitempty"`
	Principal      *PrincipalSpec `yaml:"principal,omitempty"`

	// ExpectIDs is compared in order. nil skips the check; an empty list
	// expects no results.
	ExpectIDs []string `yaml:"expect_ids,omitempty"`

	// ExpectCount is compared with Runner.Count for the same query.
	ExpectCount *int `yaml:"expect_count,omitempty"`
}

// PrincipalSpec enables the ACL check for a query.
type PrincipalSpec struct {
	ID    string   `yaml:"id"`
	Roles []string `yaml:"roles,omitempty"`
}

// Assertion checks store state after all queries ran.
type Assertion struct {
	// Type is one of dirty_ids, stats or has_cached.
	Type string `yaml:"type"`

	// ExpectIDs is used by dirty_ids.
	ExpectIDs []string `yaml:"expect_ids,omitempty"`

	// Rows and Dirty are used by stats.
	Rows  *int `yaml:"rows,omitempty"`
	Dirty *int `yaml:"dirty,omitempty"`

	// Expect is used by has_cached.
	Expect *bool `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertDirtyIDs  = "dirty_ids"
	AssertStats     = "stats"
	AssertHasCached = "has_cached"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is matched with filepath.Match against the file name
// without its extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !store.ValidBucketName(s.Bucket) {
		return fmt.Errorf("bucket %q is not a valid bucket name", s.Bucket)
	}
	if len(s.Queries) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one query or assertion is required")
	}

	seen := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if seen[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		seen[q.Name] = true
		if q.Principal != nil && q.Principal.ID == "" && len(q.Principal.Roles) == 0 {
			return fmt.Errorf("queries[%d]: principal needs an id or roles", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertDirtyIDs:
		if a.ExpectIDs == nil {
			return fmt.Errorf("assertions[%d]: expect_ids is required for dirty_ids", index)
		}
	case AssertStats:
		if a.Rows == nil && a.Dirty == nil {
			return fmt.Errorf("assertions[%d]: rows or dirty is required for stats", index)
		}
	case AssertHasCached:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for has_cached", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
