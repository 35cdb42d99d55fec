package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/localdoc/internal/jsonv"
)

// Snapshot renders the query outcomes of a run as canonical JSON:
//
//	{"queries":[{"count":1,"ids":["1"],"name":"..."}],"scenario_name":"..."}
//
// Keys are sorted, so the bytes depend only on the outcomes.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	queries := make(jsonv.Array, len(result.Queries))
	for i, q := range result.Queries {
		ids := make(jsonv.Array, len(q.IDs))
		for j, id := range q.IDs {
			ids[j] = jsonv.String(id)
		}
		queries[i] = jsonv.NewObject(
			jsonv.P("name", jsonv.String(q.Name)),
			jsonv.P("ids", ids),
			jsonv.P("count", jsonv.NewInt(int64(q.Count))),
		)
	}
	return jsonv.MarshalCanonical(jsonv.NewObject(
		jsonv.P("scenario_name", jsonv.String(scenarioName)),
		jsonv.P("queries", queries),
	))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
