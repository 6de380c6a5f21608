// Package harness provides conformance testing for query compilation.
//
// The harness loads a CUE schema definition, compiles a query tree against
// it, and validates the generated SQL, its bound params, or the expected
// error.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: user_with_address
//	description: "A has_one link compiles to a correlated subquery"
//	schema: ../schema            # CUE file or directory
//	naming: inflect              # optional: inflect | none
//	query:
//	  user:
//	    id: 1
//	    email:
//	    address: {}
//	assertions:
//	  - type: sql_contains
//	    text: "FROM addresses AS addresses2"
//	  - type: params
//	    params: [1]
//
// Query key order is significant and preserved.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - sql_contains: The compiled SQL contains text
//   - sql_not_contains: The compiled SQL does not contain text
//   - params: The bound values equal params, in order
//   - error: Compilation fails with code (and path, when given)
//
// # Golden Files
//
// Snapshot renders a result as the SQL followed by its params;
// RunWithGolden compares it against testdata/golden/{name}.golden.
// The test command writes golden/{name}.golden next to each scenario
// file when --update is given.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/user.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
