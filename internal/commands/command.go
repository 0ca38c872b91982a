// Package commands parses the slash-command palette: short text commands for
// answering doses and managing medicines without leaving the keyboard.
package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeTake   Type = "take"
	TypeSkip   Type = "skip"
	TypeSnooze Type = "snooze"
	TypeLog    Type = "log"
	TypeFind   Type = "find"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DoseArgs targets a row on the today list by its 1-based position.
type DoseArgs struct {
	Position int
}

type LogArgs struct {
	Medicine string
	Notes    string
}

type FindArgs struct {
	Name string
}

type ShowArgs struct {
	Subject string
}

type Command struct {
	Type Type
	Raw  string
	Dose *DoseArgs
	Log  *LogArgs
	Find *FindArgs
	Show *ShowArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeTake, TypeSkip, TypeSnooze:
		return parseDose(Type(head), input, args)
	case TypeLog:
		return parseLog(input, args)
	case TypeFind:
		return parseFind(input, args)
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseDose(kind Type, raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a dose number", kind)}
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil || pos < 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%q is not a dose number", args[0])}
	}
	return Command{Type: kind, Raw: raw, Dose: &DoseArgs{Position: pos}}, nil
}

func parseLog(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "log requires a medicine name"}
	}
	// Everything after "--" becomes a free-text note.
	name := args
	notes := ""
	for i, arg := range args {
		if arg == "--" {
			name = args[:i]
			notes = strings.Join(args[i+1:], " ")
			break
		}
	}
	medicine := strings.TrimSpace(strings.Join(name, " "))
	if medicine == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "log requires a medicine name"}
	}
	return Command{Type: TypeLog, Raw: raw, Log: &LogArgs{Medicine: medicine, Notes: notes}}, nil
}

func parseFind(raw string, args []string) (Command, error) {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "find requires a medicine name"}
	}
	return Command{Type: TypeFind, Raw: raw, Find: &FindArgs{Name: name}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a subject"}
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case "today", "medicines", "history", "stats":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown subject: %s", subject)}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
}
