package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the TrustGate MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolEvaluateTrust = mcp.NewTool("evaluate_trust",
	mcp.WithDescription(
		"Run a trust evaluation for a user's device signals. "+
			"Returns the trust score (0-100), decision (trusted/reverify/blocked), "+
			"per-factor breakdown, and any hard-block rule that fired. "+
			"Use this to score a login or session against the user's baseline."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier to evaluate")),
	mcp.WithString("device_id",
		mcp.Required(),
		mcp.Description("The device identifier sending the signals")),
	mcp.WithObject("signals",
		mcp.Description("Additional signal fields (e.g. {\"jailbroken\": false, \"vpnEnabled\": true, \"timezone\": \"Europe/Berlin\", \"network\": \"wifi\", \"uptimeMinutes\": 240})")),
)

var ToolGetEvaluation = mcp.NewTool("get_evaluation",
	mcp.WithDescription(
		"Fetch a stored trust evaluation by its ID. "+
			"Returns the full report including score, status, factors, and decay info."),
	mcp.WithString("evaluation_id",
		mcp.Required(),
		mcp.Description("The evaluation ID from a previous evaluate_trust result (e.g. 'eval_...')")),
)

var ToolListEvaluations = mcp.NewTool("list_evaluations",
	mcp.WithDescription(
		"List a user's recent trust evaluations, newest first. "+
			"Optionally narrow to a single device. "+
			"Use this to review a user's scoring history."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier")),
	mcp.WithString("device_id",
		mcp.Description("Optional device identifier to narrow the listing")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of evaluations to return (default 20)")),
)

var ToolGetDecayHistory = mcp.NewTool("get_decay_history",
	mcp.WithDescription(
		"Get a user's score-decay events: drops in trust score between "+
			"consecutive evaluations, graded by severity (low/medium/high/critical) "+
			"with per-factor attribution. Use this to investigate why a user's "+
			"trust degraded."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of evaluations to scan (default 50)")),
)

var ToolListTrustedClusters = mcp.NewTool("list_trusted_clusters",
	mcp.WithDescription(
		"List the location clusters learned for a user from their visit "+
			"history. Trusted clusters are places the user frequents enough to "+
			"count as familiar locations during scoring."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier")),
)

var ToolGetBaseline = mcp.NewTool("get_baseline",
	mcp.WithDescription(
		"Get the stored attribute baseline for a user's device: last-known "+
			"VPN state, network type, timezone, known IP ranges, and typical "+
			"login-hour window. Evaluations compare incoming signals against "+
			"this profile."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier")),
	mcp.WithString("device_id",
		mcp.Required(),
		mcp.Description("The device identifier")),
)
