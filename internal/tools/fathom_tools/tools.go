package fathom_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/fathom-mcp/internal/credential"
	"github.com/teemow/fathom-mcp/internal/fathom"
	"github.com/teemow/fathom-mcp/internal/server"
	"github.com/teemow/fathom-mcp/internal/tools/common"
)

// authRequiredMessage is returned when no API key could be resolved for a
// tool call. Kept deliberately actionable for the end user driving the
// client.
const authRequiredMessage = "Authentication required: no Fathom API key is available for this request. " +
	"Provide one via the api_key argument, the FATHOM_API_KEY environment variable, " +
	"or by completing the authorization flow, depending on how this server is deployed."

// meetingList is the payload shape of the list_meetings tool result.
type meetingList struct {
	Count    int                     `json:"count"`
	Meetings []fathom.MeetingSummary `json:"meetings"`
}

// resolveAPIKey runs the configured credential strategy for one tool call.
// A missing credential is reported as a tool-level error result so the
// client sees a usable message instead of a protocol failure.
func resolveAPIKey(ctx context.Context, sc *server.ServerContext, args map[string]any) (string, *mcp.CallToolResult) {
	apiKey, err := sc.Resolver().Resolve(ctx, args)
	if err != nil {
		if errors.Is(err, credential.ErrMissingCredential) {
			return "", mcp.NewToolResultError(authRequiredMessage)
		}
		return "", mcp.NewToolResultError(fmt.Sprintf("Error resolving credentials: %v", err))
	}
	return apiKey, nil
}

// RegisterFathomTools registers the meeting tools with the MCP server.
// When explicitKey is set each tool schema additionally carries an api_key
// parameter, for deployments where every call brings its own credential.
func RegisterFathomTools(s *mcpserver.MCPServer, sc *server.ServerContext, explicitKey bool) {
	keyParam := func(opts []mcp.ToolOption) []mcp.ToolOption {
		if explicitKey {
			opts = append(opts, mcp.WithString("api_key",
				mcp.Description("Fathom API key to authenticate this call"),
			))
		}
		return opts
	}

	listOpts := keyParam([]mcp.ToolOption{
		mcp.WithDescription("List Fathom meetings with optional date filters and inline transcripts"),
		mcp.WithString("created_after",
			mcp.Description("Only include meetings created after this ISO 8601 timestamp"),
		),
		mcp.WithString("created_before",
			mcp.Description("Only include meetings created before this ISO 8601 timestamp"),
		),
		mcp.WithBoolean("include_transcript",
			mcp.Description("Attach the transcript to each meeting when the API provides one inline"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of meetings to return (default: 20)"),
		),
	})
	s.AddTool(mcp.NewTool("list_meetings", listOpts...),
		common.InstrumentedToolHandler("list_meetings", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleListMeetings(ctx, request, sc)
			}))

	transcriptOpts := keyParam([]mcp.ToolOption{
		mcp.WithDescription("Fetch the transcript of a Fathom meeting as speaker-attributed text"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("The meeting identifier"),
		),
		mcp.WithString("recording_id",
			mcp.Description("The recording identifier, when known; defaults to the meeting identifier"),
		),
	})
	s.AddTool(mcp.NewTool("get_transcript", transcriptOpts...),
		common.InstrumentedToolHandler("get_transcript", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleGetTranscript(ctx, request, sc)
			}))

	detailsOpts := keyParam([]mcp.ToolOption{
		mcp.WithDescription("Fetch the full raw record of a Fathom meeting"),
		mcp.WithString("meeting_id",
			mcp.Required(),
			mcp.Description("The meeting identifier"),
		),
	})
	s.AddTool(mcp.NewTool("get_meeting_details", detailsOpts...),
		common.InstrumentedToolHandler("get_meeting_details", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleGetMeetingDetails(ctx, request, sc)
			}))
}

func handleListMeetings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	apiKey, errResult := resolveAPIKey(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	opts := fathom.ListMeetingsOptions{}
	if v, ok := args["created_after"].(string); ok {
		opts.CreatedAfter = v
	}
	if v, ok := args["created_before"].(string); ok {
		opts.CreatedBefore = v
	}
	if v, ok := args["include_transcript"].(bool); ok {
		opts.IncludeTranscript = v
	}
	if v, ok := args["limit"].(float64); ok && v > 0 {
		opts.Limit = int(v)
	}

	summaries, err := sc.FathomClient().ListMeetings(ctx, apiKey, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing meetings: %v", err)), nil
	}

	payload := meetingList{
		Count:    len(summaries),
		Meetings: summaries,
	}
	if payload.Meetings == nil {
		payload.Meetings = []fathom.MeetingSummary{}
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing meetings: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleGetTranscript(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	apiKey, errResult := resolveAPIKey(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	meetingID, ok := args["meeting_id"].(string)
	if !ok || meetingID == "" {
		return mcp.NewToolResultError("meeting_id is required"), nil
	}
	recordingID, _ := args["recording_id"].(string)

	transcript, err := sc.FathomClient().GetTranscript(ctx, apiKey, meetingID, recordingID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching transcript: %v", err)), nil
	}

	return mcp.NewToolResultText(transcript), nil
}

func handleGetMeetingDetails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	apiKey, errResult := resolveAPIKey(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	meetingID, ok := args["meeting_id"].(string)
	if !ok || meetingID == "" {
		return mcp.NewToolResultError("meeting_id is required"), nil
	}

	record, err := sc.FathomClient().GetMeeting(ctx, apiKey, meetingID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching meeting details: %v", err)), nil
	}

	var pretty json.RawMessage = record
	if out, err := json.MarshalIndent(json.RawMessage(record), "", "  "); err == nil {
		pretty = out
	}
	return mcp.NewToolResultText(string(pretty)), nil
}
