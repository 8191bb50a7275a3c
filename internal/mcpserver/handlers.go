package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *TrustGateClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *TrustGateClient) *Handlers {
	return &Handlers{client: client}
}

// HandleEvaluateTrust runs a trust evaluation.
func (h *Handlers) HandleEvaluateTrust(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	deviceID := req.GetString("device_id", "")
	if deviceID == "" {
		return mcp.NewToolResultError("device_id is required"), nil
	}

	// Start from the free-form signals and overlay the required identifiers.
	snapshot := make(map[string]any)
	if raw := req.GetArguments()["signals"]; raw != nil {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				snapshot[k] = v
			}
		}
	}
	snapshot["userId"] = userID
	snapshot["deviceId"] = deviceID

	raw, err := h.client.Evaluate(ctx, snapshot)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Evaluation failed: %v", err)), nil
	}

	text, err := formatEvaluationResult(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse evaluation: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetEvaluation fetches a stored evaluation.
func (h *Handlers) HandleGetEvaluation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("evaluation_id", "")
	if id == "" {
		return mcp.NewToolResultError("evaluation_id is required"), nil
	}

	raw, err := h.client.GetEvaluation(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get evaluation: %v", err)), nil
	}

	var wrapper struct {
		Evaluation json.RawMessage `json:"evaluation"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Evaluation == nil {
		return mcp.NewToolResultError("unexpected evaluation response format"), nil
	}

	var report reportInfo
	if err := json.Unmarshal(wrapper.Evaluation, &report); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse evaluation: %v", err)), nil
	}

	return mcp.NewToolResultText(formatReport(&report)), nil
}

// HandleListEvaluations lists a user's recent evaluations.
func (h *Handlers) HandleListEvaluations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	deviceID := req.GetString("device_id", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListEvaluations(ctx, userID, deviceID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list evaluations: %v", err)), nil
	}

	text, err := formatEvaluationList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse evaluations: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetDecayHistory returns a user's score-decay events.
func (h *Handlers) HandleGetDecayHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	limit := req.GetInt("limit", 50)

	raw, err := h.client.GetDecayHistory(ctx, userID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get decay history: %v", err)), nil
	}

	text, err := formatDecayHistory(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decay history: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListTrustedClusters lists a user's learned location clusters.
func (h *Handlers) HandleListTrustedClusters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.ListClusters(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list clusters: %v", err)), nil
	}

	text, err := formatClusterList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse clusters: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetBaseline returns the stored attribute baseline for a device.
func (h *Handlers) HandleGetBaseline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	deviceID := req.GetString("device_id", "")
	if deviceID == "" {
		return mcp.NewToolResultError("device_id is required"), nil
	}

	raw, err := h.client.GetBaseline(ctx, userID, deviceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get baseline: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// --- Formatting helpers ---

type factorInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type decayInfo struct {
	Previous  int            `json:"previous"`
	Current   int            `json:"current"`
	Amount    int            `json:"amount"`
	Severity  string         `json:"severity"`
	PerFactor map[string]int `json:"perFactor"`
}

type reportInfo struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	DeviceID      string       `json:"deviceId"`
	DeviceType    string       `json:"deviceType"`
	Score         int          `json:"score"`
	Status        string       `json:"status"`
	Factors       []factorInfo `json:"factors"`
	Flags         []string     `json:"flags"`
	HardBlocked   bool         `json:"hardBlocked"`
	HardBlockRule string       `json:"hardBlockRule"`
	Decay         *decayInfo   `json:"decay"`
	EvaluatedAt   string       `json:"evaluatedAt"`
}

func formatEvaluationResult(raw json.RawMessage) (string, error) {
	var resp struct {
		Report      *reportInfo `json:"report"`
		Action      string      `json:"action"`
		FinalStatus string      `json:"finalStatus"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Report == nil {
		return "", fmt.Errorf("unexpected evaluation response format")
	}

	var sb strings.Builder
	sb.WriteString(formatReport(resp.Report))
	fmt.Fprintf(&sb, "\nDecision: %s\n", resp.FinalStatus)
	if resp.Action != "" && resp.Action != "none" {
		fmt.Fprintf(&sb, "Action: %s\n", resp.Action)
	}
	return sb.String(), nil
}

func formatReport(r *reportInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Evaluation %s\n", r.ID)
	fmt.Fprintf(&sb, "User: %s | Device: %s (%s)\n", r.UserID, r.DeviceID, r.DeviceType)
	fmt.Fprintf(&sb, "Score: %d/100 | Status: %s\n", r.Score, r.Status)

	if r.HardBlocked {
		fmt.Fprintf(&sb, "HARD BLOCKED by rule: %s\n", r.HardBlockRule)
	}

	if len(r.Factors) > 0 {
		sb.WriteString("\nFactors:\n")
		for _, f := range r.Factors {
			fmt.Fprintf(&sb, "  %-14s %+4d  %s (%s)\n", f.Name, f.Delta, f.Status, f.Reason)
		}
	}

	if len(r.Flags) > 0 {
		fmt.Fprintf(&sb, "\nFlags: %s\n", strings.Join(r.Flags, ", "))
	}

	if r.Decay != nil && r.Decay.Severity != "" && r.Decay.Severity != "none" {
		fmt.Fprintf(&sb, "\nScore decay: %d -> %d (%s)\n", r.Decay.Previous, r.Decay.Current, r.Decay.Severity)
	}

	return sb.String()
}

func formatEvaluationList(raw json.RawMessage) (string, error) {
	var resp struct {
		Evaluations []reportInfo `json:"evaluations"`
		Count       int          `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Evaluations) == 0 {
		return "No evaluations found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d evaluation(s):\n\n", len(resp.Evaluations))
	for i, r := range resp.Evaluations {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.ID)
		fmt.Fprintf(&sb, "   Score: %d | Status: %s | Device: %s\n", r.Score, r.Status, r.DeviceID)
		if r.HardBlocked {
			fmt.Fprintf(&sb, "   Hard blocked: %s\n", r.HardBlockRule)
		}
		if r.EvaluatedAt != "" {
			fmt.Fprintf(&sb, "   At: %s\n", r.EvaluatedAt)
		}
		if i < len(resp.Evaluations)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatDecayHistory(raw json.RawMessage) (string, error) {
	var resp struct {
		Decay []decayInfo `json:"decay"`
		Count int         `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Decay) == 0 {
		return "No decay events recorded.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d decay event(s):\n\n", len(resp.Decay))
	for i, d := range resp.Decay {
		fmt.Fprintf(&sb, "%d. %d -> %d (dropped %d, severity: %s)\n", i+1, d.Previous, d.Current, d.Amount, d.Severity)
		if len(d.PerFactor) > 0 {
			sb.WriteString("   Attribution:")
			for name, delta := range d.PerFactor {
				fmt.Fprintf(&sb, " %s=%d", name, delta)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatClusterList(raw json.RawMessage) (string, error) {
	var resp struct {
		Clusters []struct {
			ID           string  `json:"id"`
			Lat          float64 `json:"lat"`
			Lon          float64 `json:"lon"`
			RadiusM      float64 `json:"radiusM"`
			VisitCount   int     `json:"visitCount"`
			DwellMinutes float64 `json:"dwellMinutes"`
			Trusted      bool    `json:"trusted"`
		} `json:"clusters"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Clusters) == 0 {
		return "No location clusters learned for this user.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d cluster(s):\n\n", len(resp.Clusters))
	for i, c := range resp.Clusters {
		trust := "learning"
		if c.Trusted {
			trust = "trusted"
		}
		fmt.Fprintf(&sb, "%d. %s [%s]\n", i+1, c.ID, trust)
		fmt.Fprintf(&sb, "   Center: (%.5f, %.5f) | Radius: %.0fm\n", c.Lat, c.Lon, c.RadiusM)
		fmt.Fprintf(&sb, "   Visits: %d | Dwell: %.0f min\n", c.VisitCount, c.DwellMinutes)
		if i < len(resp.Clusters)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
