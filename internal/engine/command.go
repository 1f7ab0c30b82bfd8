// internal/engine/command.go
package engine

import "context"

type CommandType int

const (
	CmdSubmit CommandType = iota
	CmdFullDepth
	CmdAggregatedDepth
	CmdMarketSummary
	CmdStatus
	CmdRecentTrades
)

func (t CommandType) String() string {
	switch t {
	case CmdSubmit:
		return "submit"
	case CmdFullDepth:
		return "full_depth"
	case CmdAggregatedDepth:
		return "aggregated_depth"
	case CmdMarketSummary:
		return "market_summary"
	case CmdStatus:
		return "status"
	case CmdRecentTrades:
		return "recent_trades"
	}
	return "unknown"
}

type Command struct {
	Ctx   context.Context // commands whose Ctx is done by dequeue time are not applied
	Type  CommandType
	Order *LimitOrder // used when Type == CmdSubmit
	ID    string      // used when Type == CmdStatus
	Count int         // used when Type == CmdRecentTrades
	Resp  chan result // engine sends the result back here
}

type result struct {
	value any
	err   error
}
