package cerr

import "github.com/kazz187/tasktracker/pkg/clog"

type Code int

const (
	OK              = Code(0)
	Canceled        = Code(1)
	Unknown         = Code(2)
	InvalidArgument = Code(3)
	NotFound        = Code(5)
	Internal        = Code(13)
	Unavailable     = Code(14)
	DataLoss        = Code(15)
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Canceled:
		return "canceled"
	case Unknown:
		return "unknown"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Internal:
		return "internal"
	case Unavailable:
		return "unavailable"
	case DataLoss:
		return "data_loss"
	default:
		return "unknown"
	}
}

// Exit status codes returned by the CLI.
const (
	ExitOK          = 0
	ExitUserError   = 1
	ExitPersistence = 2
	ExitInternal    = 3
)

// ExitCode maps a code to the process exit status.
func (c Code) ExitCode() int {
	switch c {
	case OK:
		return ExitOK
	case InvalidArgument, NotFound, Canceled:
		return ExitUserError
	case DataLoss, Unavailable:
		return ExitPersistence
	default:
		return ExitInternal
	}
}

// Level is the log level an error of this code is reported at.
func (c Code) Level() clog.Level {
	switch c {
	case OK, Canceled, InvalidArgument, NotFound:
		return clog.LevelInfo
	case Unavailable:
		return clog.LevelWarn
	default:
		return clog.LevelError
	}
}
