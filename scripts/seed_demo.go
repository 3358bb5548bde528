// seed_demo.go — standalone script to seed a demo framework and a pair of
// scenarios through the bidwise API, then analyze both.
//
// Usage:
//
//	go run scripts/seed_demo.go -api http://localhost:8700 -user demo
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type criterion struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Kind          string   `json:"kind"`
	MinValue      *float64 `json:"min_value,omitempty"`
	MaxValue      *float64 `json:"max_value,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Weight        float64  `json:"weight"`
	Required      bool     `json:"required"`
}

type frameworkRequest struct {
	Name       string                 `json:"name"`
	Criteria   []criterion            `json:"criteria"`
	Weights    map[string]int         `json:"weights"`
	Thresholds map[string]interface{} `json:"thresholds"`
}

type scenarioRequest struct {
	Name           string                 `json:"name"`
	ProjectID      string                 `json:"project_id"`
	FrameworkID    string                 `json:"framework_id"`
	CriteriaValues map[string]interface{} `json:"criteria_values"`
}

func fptr(v float64) *float64 { return &v }

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "bidwise API base URL")
	userID := flag.String("user", "demo", "X-User-ID header value")
	dryRun := flag.Bool("dry-run", false, "print payloads without posting")
	flag.Parse()

	framework := frameworkRequest{
		Name: "Demo tender screen",
		Criteria: []criterion{
			{ID: "margin", Name: "Expected margin %", Category: "financial", Kind: "numeric", MinValue: fptr(0), MaxValue: fptr(20), Weight: 2, Required: true},
			{ID: "cashflow", Name: "Cashflow profile", Category: "financial", Kind: "numeric", MinValue: fptr(0), MaxValue: fptr(100), Weight: 1},
			{ID: "alignment", Name: "Strategic alignment", Category: "strategic", Kind: "categorical", AllowedValues: []string{"none", "partial", "strong"}, Weight: 1},
			{ID: "capacity", Name: "Delivery capacity available", Category: "operational", Kind: "boolean", Weight: 1, Required: true},
			{ID: "siterisk", Name: "Site condition score", Category: "risk", Kind: "numeric", MinValue: fptr(0), MaxValue: fptr(100), Weight: 1},
			{ID: "demand", Name: "Market demand", Category: "market", Kind: "numeric", MinValue: fptr(0), MaxValue: fptr(100), Weight: 1},
		},
		Weights: map[string]int{"financial": 30, "strategic": 25, "operational": 20, "risk": 15, "market": 10},
		Thresholds: map[string]interface{}{
			"bid_threshold":     70,
			"no_bid_threshold":  40,
			"conditional_range": map[string]float64{"min": 40, "max": 70},
			"risk_tolerance":    "moderate",
		},
	}

	scenarios := []map[string]interface{}{
		{
			"name": "Harbour quay refurbishment",
			"values": map[string]interface{}{
				"margin": 15.0, "cashflow": 70.0, "alignment": "strong",
				"capacity": true, "siterisk": 80.0, "demand": 75.0,
			},
		},
		{
			"name": "Motorway gantry package",
			"values": map[string]interface{}{
				"margin": 4.0, "cashflow": 30.0, "alignment": "none",
				"capacity": false, "siterisk": 25.0, "demand": 35.0,
			},
		},
	}

	client := &http.Client{}
	post := func(path string, body interface{}, out interface{}) {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s: %v", path, err)
		}
		if *dryRun {
			fmt.Printf("POST %s\n%s\n\n", path, payload)
			return
		}
		req, err := http.NewRequest(http.MethodPost, *apiURL+path, bytes.NewReader(payload))
		if err != nil {
			log.Fatalf("request %s: %v", path, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", *userID)
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("post %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Fatalf("post %s: status %d", path, resp.StatusCode)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				log.Fatalf("decode %s: %v", path, err)
			}
		}
	}

	var createdFramework struct {
		ID string `json:"id"`
	}
	post("/api/v1/frameworks", framework, &createdFramework)
	log.Printf("framework created: %s", createdFramework.ID)

	for _, s := range scenarios {
		var created struct {
			ID string `json:"id"`
		}
		post("/api/v1/scenarios", scenarioRequest{
			Name:           s["name"].(string),
			ProjectID:      "demo",
			FrameworkID:    createdFramework.ID,
			CriteriaValues: s["values"].(map[string]interface{}),
		}, &created)
		log.Printf("scenario created: %s (%s)", created.ID, s["name"])

		var analyzed struct {
			Analysis struct {
				OverallScore   float64 `json:"overall_score"`
				Recommendation string  `json:"recommendation"`
			} `json:"analysis"`
		}
		post("/api/v1/scenarios/"+created.ID+"/analyze", map[string]string{}, &analyzed)
		log.Printf("analyzed %s: score %.1f, recommendation %s",
			created.ID, analyzed.Analysis.OverallScore, analyzed.Analysis.Recommendation)
	}
}
