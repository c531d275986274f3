// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/argo"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// makeRequest marshals args into a *mcp.CallToolRequest.
func makeRequest(t *testing.T, args interface{}) *mcp.CallToolRequest {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal request args: %v", err)
	}
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Arguments: json.RawMessage(data),
		},
	}
}

// parseResponse extracts TextContent from a CallToolResult and unmarshals it into dest.
func parseResponse(t *testing.T, result *mcp.CallToolResult, dest interface{}) {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	if err := json.Unmarshal([]byte(tc.Text), dest); err != nil {
		t.Fatalf("failed to unmarshal response: %v\nraw: %s", err, tc.Text)
	}
}

// TestIntegration_ModelingFullLifecycle exercises the full modeling workflow:
// build_media → build_model → run_fba (no growth) → gapfill_model → run_fba (growth)
func TestIntegration_ModelingFullLifecycle(t *testing.T) {
	srv := createTestServer(t)
	ctx := context.Background()

	// 1. Build a glucose minimal media
	mediaResult, err := srv.handleBuildMedia(ctx, makeRequest(t, BuildMediaParams{
		ID:        "glc_minimal",
		Name:      "Glucose minimal media",
		Compounds: []string{"cpd00027", "cpd00001", "cpd00007", "cpd00009", "cpd00013"},
	}))
	if err != nil {
		t.Fatalf("handleBuildMedia failed: %v", err)
	}

	var media model.Media
	parseResponse(t, mediaResult, &media)
	if media.ID != "glc_minimal" {
		t.Fatalf("media ID = %q", media.ID)
	}
	if len(media.Compounds) != 5 {
		t.Fatalf("media has %d compounds, want 5", len(media.Compounds))
	}
	for _, mc := range media.Compounds {
		if mc.MinFlux >= 0 {
			t.Errorf("compound %s has non-negative uptake bound %v", mc.CompoundID, mc.MinFlux)
		}
	}

	// 2. Build a draft model
	modelResult, err := srv.handleBuildModel(ctx, makeRequest(t, BuildModelParams{
		GenomeID: "83333.1",
	}))
	if err != nil {
		t.Fatalf("handleBuildModel failed: %v", err)
	}

	var draft model.MetabolicModel
	parseResponse(t, modelResult, &draft)
	if draft.ID == "" {
		t.Fatal("expected non-empty model ID")
	}
	if draft.Template != "gram_negative" {
		t.Errorf("template = %q, want gram_negative (default)", draft.Template)
	}
	if draft.Gapfilled {
		t.Error("draft model should not be marked gapfilled")
	}

	// 3. Get model info round-trips
	infoResult, err := srv.handleGetModelInfo(ctx, makeRequest(t, ModelIDParams{ID: draft.ID}))
	if err != nil {
		t.Fatalf("handleGetModelInfo failed: %v", err)
	}
	var fetched model.MetabolicModel
	parseResponse(t, infoResult, &fetched)
	if fetched.GenomeID != "83333.1" {
		t.Errorf("genome ID = %q", fetched.GenomeID)
	}

	// 4. FBA on the draft
	fbaResult, err := srv.handleRunFBA(ctx, makeRequest(t, RunFBAParams{
		ModelID: draft.ID,
		MediaID: media.ID,
	}))
	if err != nil {
		t.Fatalf("handleRunFBA failed: %v", err)
	}
	var draftSol struct {
		model.FBASolution
		Growing bool `json:"growing"`
	}
	parseResponse(t, fbaResult, &draftSol)
	if draftSol.Status != "optimal" {
		t.Errorf("draft FBA status = %q", draftSol.Status)
	}

	// 5. Gapfill the model on the media
	gapfillResult, err := srv.handleGapfillModel(ctx, makeRequest(t, GapfillParams{
		ModelID: draft.ID,
		MediaID: media.ID,
	}))
	if err != nil {
		t.Fatalf("handleGapfillModel failed: %v", err)
	}
	var gapfilled model.MetabolicModel
	parseResponse(t, gapfillResult, &gapfilled)
	if !gapfilled.Gapfilled {
		t.Fatal("model should be marked gapfilled")
	}
	if gapfilled.GapfillMedia != media.ID {
		t.Errorf("gapfill media = %q, want %q", gapfilled.GapfillMedia, media.ID)
	}
	if len(gapfilled.Reactions) <= len(draft.Reactions) {
		t.Errorf("gapfilled model has %d reactions, draft had %d; expected additions",
			len(gapfilled.Reactions), len(draft.Reactions))
	}

	// 6. FBA after gapfilling improves the objective
	fbaResult2, err := srv.handleRunFBA(ctx, makeRequest(t, RunFBAParams{
		ModelID: draft.ID,
		MediaID: media.ID,
	}))
	if err != nil {
		t.Fatalf("handleRunFBA after gapfill failed: %v", err)
	}
	var gapSol struct {
		model.FBASolution
		Growing bool `json:"growing"`
	}
	parseResponse(t, fbaResult2, &gapSol)
	if !gapSol.Growing {
		t.Error("gapfilled model should grow on the media")
	}
	if gapSol.ObjectiveValue <= draftSol.ObjectiveValue {
		t.Errorf("gapfilled objective %v should exceed draft objective %v",
			gapSol.ObjectiveValue, draftSol.ObjectiveValue)
	}

	// 7. Clean up: delete media and model
	if _, err := srv.handleDeleteMedia(ctx, makeRequest(t, MediaIDParams{ID: media.ID})); err != nil {
		t.Fatalf("handleDeleteMedia failed: %v", err)
	}
	if _, err := srv.handleDeleteModel(ctx, makeRequest(t, ModelIDParams{ID: draft.ID})); err != nil {
		t.Fatalf("handleDeleteModel failed: %v", err)
	}

	var listResp struct {
		Count int      `json:"count"`
		IDs   []string `json:"ids"`
	}
	listResult, err := srv.handleListModels(ctx, nil)
	if err != nil {
		t.Fatalf("handleListModels failed: %v", err)
	}
	parseResponse(t, listResult, &listResp)
	if listResp.Count != 0 {
		t.Errorf("expected no models after delete, got %v", listResp.IDs)
	}
}

// TestIntegration_MediaListAndGet exercises media storage round-trips.
func TestIntegration_MediaListAndGet(t *testing.T) {
	srv := createTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"media_a", "media_b"} {
		_, err := srv.handleBuildMedia(ctx, makeRequest(t, BuildMediaParams{
			ID:        id,
			Compounds: []string{"cpd00027"},
		}))
		if err != nil {
			t.Fatalf("handleBuildMedia(%s) failed: %v", id, err)
		}
	}

	listResult, err := srv.handleListMedia(ctx, nil)
	if err != nil {
		t.Fatalf("handleListMedia failed: %v", err)
	}
	var listResp struct {
		Count int      `json:"count"`
		IDs   []string `json:"ids"`
	}
	parseResponse(t, listResult, &listResp)
	if listResp.Count != 2 {
		t.Fatalf("count = %d, want 2", listResp.Count)
	}

	getResult, err := srv.handleGetMedia(ctx, makeRequest(t, MediaIDParams{ID: "media_a"}))
	if err != nil {
		t.Fatalf("handleGetMedia failed: %v", err)
	}
	var media model.Media
	parseResponse(t, getResult, &media)
	if media.Compounds[0].Name != "D-Glucose" {
		t.Errorf("compound name = %q, want D-Glucose", media.Compounds[0].Name)
	}
}

// TestIntegration_ClientRegistryOverInMemoryTransport connects the chat
// client's tool registry to the server over an in-memory MCP transport and
// exercises discovery plus a tool call end to end.
func TestIntegration_ClientRegistryOverInMemoryTransport(t *testing.T) {
	srv := createTestServer(t)
	srv.registerToolsDeclarative()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = srv.server.Run(ctx, serverTransport)
	}()

	logger := logging.New(logging.Options{Level: logging.Info})
	reg, err := argo.ConnectTransport(ctx, clientTransport, logger)
	if err != nil {
		t.Fatalf("ConnectTransport failed: %v", err)
	}
	defer func() { _ = reg.Close() }()

	tools, err := reg.GetTools(ctx)
	if err != nil {
		t.Fatalf("GetTools failed: %v", err)
	}
	if len(tools) != 16 {
		t.Errorf("discovered %d tools, want 16", len(tools))
	}
	for _, name := range []string{"get_compound_name", "build_media", "gapfill_model", "run_fba"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s missing from discovery", name)
		}
	}

	result, err := reg.CallTool(ctx, "get_compound_name", map[string]interface{}{"id": "cpd00027"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	text, ok := result.(string)
	if !ok {
		t.Fatalf("result has type %T, want string", result)
	}
	if !strings.Contains(text, "D-Glucose") {
		t.Errorf("result = %q, want it to mention D-Glucose", text)
	}
}
