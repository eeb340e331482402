// assess-resolution scores the engine's nutrition answers against a labeled
// dataset of queries with known calorie totals.
//
// The dataset is a YAML file of cases:
//
//	cases:
//	  - query: "calories in hummus"
//	    country: "Lebanon"
//	    expected_calories: 250
//
// Each case is sent to a running engine as one chat turn (a fresh session
// per case, so cases cannot contaminate each other) and the answered totals
// are compared against the expected values.
//
// Usage: go run ./scripts/assess-resolution [-engine http://localhost:8080] <dataset.yaml>
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nutriarab/nutriarab-engine/pkg/evaluation"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// Dataset is the parsed YAML evaluation file.
type Dataset struct {
	Cases []Case `yaml:"cases"`
}

// Case is one labeled query.
type Case struct {
	Query            string  `yaml:"query"`
	Country          string  `yaml:"country"`
	ExpectedCalories float64 `yaml:"expected_calories"`
	ExpectedProtein  float64 `yaml:"expected_protein"`
}

// CaseResult is the per-case assessment output.
type CaseResult struct {
	Query            string  `json:"query"`
	Country          string  `json:"country,omitempty"`
	ExpectedCalories float64 `json:"expected_calories"`
	ActualCalories   float64 `json:"actual_calories"`
	Source           string  `json:"source,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// AssessmentResult is the full assessment output.
type AssessmentResult struct {
	EngineURL string             `json:"engine_url"`
	Dataset   string             `json:"dataset"`
	Calories  evaluation.Metrics `json:"calories"`
	Cases     []CaseResult       `json:"cases"`
	Failures  int                `json:"failures"`
}

func main() {
	engineURL := flag.String("engine", "http://localhost:8080", "base URL of a running engine")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-engine URL] <dataset.yaml>\n", os.Args[0])
		os.Exit(1)
	}
	datasetPath := flag.Arg(0)

	dataset, err := loadDataset(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}
	if len(dataset.Cases) == 0 {
		fmt.Fprintln(os.Stderr, "Dataset contains no cases")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	result := AssessmentResult{
		EngineURL: *engineURL,
		Dataset:   datasetPath,
	}
	var samples []evaluation.Sample

	for _, c := range dataset.Cases {
		caseResult := CaseResult{
			Query:            c.Query,
			Country:          c.Country,
			ExpectedCalories: c.ExpectedCalories,
		}

		resp, err := askEngine(client, *engineURL, c)
		if err != nil {
			caseResult.Error = err.Error()
			result.Failures++
		} else {
			caseResult.ActualCalories = resp.Totals.Calories
			caseResult.Source = string(resp.Source)
			samples = append(samples, evaluation.Sample{
				Expected: c.ExpectedCalories,
				Actual:   resp.Totals.Calories,
			})
		}
		result.Cases = append(result.Cases, caseResult)
	}

	result.Calories = evaluation.Compute(samples)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))

	if result.Failures > 0 {
		os.Exit(1)
	}
}

func loadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dataset Dataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return &dataset, nil
}

func askEngine(client *http.Client, baseURL string, c Case) (*models.ChatResponse, error) {
	body, err := json.Marshal(models.ChatRequest{
		Message: c.Query,
		Country: c.Country,
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := client.Post(baseURL+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d", httpResp.StatusCode)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	return &resp, nil
}
