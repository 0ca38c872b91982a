package commands

import "fmt"

type Result struct {
	Message string
}

// Handlers binds each command type to application behavior. A nil handler
// means the host view does not support the command.
type Handlers struct {
	Take   func(DoseArgs) (Result, error)
	Skip   func(DoseArgs) (Result, error)
	Snooze func(DoseArgs) (Result, error)
	Log    func(LogArgs) (Result, error)
	Find   func(FindArgs) (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeTake:
		if handlers.Take == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "take handler not configured"}
		}
		return handlers.Take(*cmd.Dose)
	case TypeSkip:
		if handlers.Skip == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "skip handler not configured"}
		}
		return handlers.Skip(*cmd.Dose)
	case TypeSnooze:
		if handlers.Snooze == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "snooze handler not configured"}
		}
		return handlers.Snooze(*cmd.Dose)
	case TypeLog:
		if handlers.Log == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "log handler not configured"}
		}
		return handlers.Log(*cmd.Log)
	case TypeFind:
		if handlers.Find == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "find handler not configured"}
		}
		return handlers.Find(*cmd.Find)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "show handler not configured"}
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
