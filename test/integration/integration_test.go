package integration

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// featureOptions builds the godog options. KEYVAULT_FEATURE_TAGS narrows the
// run to tagged scenarios (e.g. "@access" or "~@slow") and
// KEYVAULT_FEATURE_FORMAT overrides the pretty formatter.
func featureOptions(t *testing.T) *godog.Options {
	format := os.Getenv("KEYVAULT_FEATURE_FORMAT")
	if format == "" {
		format = "pretty"
	}
	return &godog.Options{
		Format:   format,
		Paths:    []string{"features"},
		Tags:     strings.TrimSpace(os.Getenv("KEYVAULT_FEATURE_TAGS")),
		Strict:   true,
		TestingT: t,
	}
}

func TestFeatures(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping keyvault integration tests. Set INTEGRATION_TEST=1 to run.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tc, err := NewTestContext(ctx)
	if err != nil {
		t.Fatalf("start postgres and keyvault server: %v", err)
	}
	defer tc.Close(ctx)

	suite := godog.TestSuite{
		Name: "keyvault",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			steps := NewStepsContext(tc)
			steps.RegisterSteps(sc)
		},
		Options: featureOptions(t),
	}

	if suite.Run() != 0 {
		t.Fatal("keyvault feature scenarios failed")
	}
}
