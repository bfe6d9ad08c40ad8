package http

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/Mymoliy/echotrace/pkg/version"
)

// mcpToolArgs covers the arguments of every analytics tool. JSON numbers
// arrive as float64.
type mcpToolArgs struct {
	Room   string  `mapstructure:"room"`
	Member string  `mapstructure:"member"`
	Time   string  `mapstructure:"time"`
	Top    float64 `mapstructure:"top"`
}

func decodeMCPArgs(request mcp.CallToolRequest) (mcpToolArgs, error) {
	var args mcpToolArgs
	if err := mapstructure.Decode(request.GetArguments(), &args); err != nil {
		return args, err
	}
	args.Room = strings.TrimSpace(args.Room)
	args.Member = strings.TrimSpace(args.Member)
	return args, nil
}

func mcpJSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Service) initMCPServer() {
	ms := server.NewMCPServer("echotrace", version.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	ms.AddTool(mcp.NewTool("chatroom_list",
		mcp.WithDescription("List group chats with their display names and member counts"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSONResult(s.db.Engine().ListGroupChats(ctx))
	})

	ms.AddTool(mcp.NewTool("chatroom_members",
		mcp.WithDescription("List the members of a chat room with their display names"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		return mcpJSONResult(s.db.Engine().ListMembers(ctx, args.Room))
	})

	ms.AddTool(mcp.NewTool("chatroom_rank",
		mcp.WithDescription("Rank chat room members by message count, most active first"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
		mcp.WithString("time", mcp.Description("Time range, e.g. 2024, 2024-01 or 2024-01-01~2024-01-31; empty means full history")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		start, end, err := timeWindow(args.Time)
		if err != nil {
			return mcp.NewToolResultError("invalid time range: " + args.Time), nil
		}
		return mcpJSONResult(s.db.Engine().RankMembersByMessageCount(ctx, args.Room, start, end))
	})

	ms.AddTool(mcp.NewTool("member_daily",
		mcp.WithDescription("Per-day message counts for one chat room member"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
		mcp.WithString("member", mcp.Required(), mcp.Description("Member username")),
		mcp.WithString("time", mcp.Description("Time range; empty means full history")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		if args.Member == "" {
			return mcp.NewToolResultError("member is required"), nil
		}
		start, end, err := timeWindow(args.Time)
		if err != nil {
			return mcp.NewToolResultError("invalid time range: " + args.Time), nil
		}
		return mcpJSONResult(s.db.Engine().MemberDailyMessageCounts(ctx, args.Room, args.Member, start, end))
	})

	ms.AddTool(mcp.NewTool("member_wordfreq",
		mcp.WithDescription("Most frequent words in one member's text messages"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
		mcp.WithString("member", mcp.Required(), mcp.Description("Member username")),
		mcp.WithString("time", mcp.Description("Time range; empty means full history")),
		mcp.WithNumber("top", mcp.Description("Maximum number of words to return")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		if args.Member == "" {
			return mcp.NewToolResultError("member is required"), nil
		}
		start, end, err := timeWindow(args.Time)
		if err != nil {
			return mcp.NewToolResultError("invalid time range: " + args.Time), nil
		}
		return mcpJSONResult(s.db.Engine().MemberWordFrequency(ctx, args.Room, args.Member, start, end, int(args.Top)))
	})

	ms.AddTool(mcp.NewTool("chatroom_mediatype",
		mcp.WithDescription("Message counts per media type in a chat room"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
		mcp.WithString("time", mcp.Description("Time range; empty means full history")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		start, end, err := timeWindow(args.Time)
		if err != nil {
			return mcp.NewToolResultError("invalid time range: " + args.Time), nil
		}
		return mcpJSONResult(labelMediaTypes(s.db.Engine().MediaTypeHistogram(ctx, args.Room, start, end)))
	})

	ms.AddTool(mcp.NewTool("chatroom_hours",
		mcp.WithDescription("Message counts per local hour of day in a chat room"),
		mcp.WithString("room", mcp.Required(), mcp.Description("Chat room identifier")),
		mcp.WithString("time", mcp.Description("Time range; empty means full history")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeMCPArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Room == "" {
			return mcp.NewToolResultError("room is required"), nil
		}
		start, end, err := timeWindow(args.Time)
		if err != nil {
			return mcp.NewToolResultError("invalid time range: " + args.Time), nil
		}
		return mcpJSONResult(sortHourCounts(s.db.Engine().ActiveHourHistogram(ctx, args.Room, start, end)))
	})

	s.mcpServer = ms
	s.mcpSSEServer = server.NewSSEServer(ms,
		server.WithMessageEndpoint("/message"),
		server.WithSSEEndpoint("/sse"),
	)
	s.mcpStreamableServer = server.NewStreamableHTTPServer(ms,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
}
