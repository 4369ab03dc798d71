package log

import "log/slog"

func InstanceID[T ~string](id T) slog.Attr {
	return slog.String("instance_id", string(id))
}

func TemplateID[T ~string](id T) slog.Attr {
	return slog.String("template_id", string(id))
}

func SubjectID[T ~string](id T) slog.Attr {
	return slog.String("subject_id", string(id))
}

func StageID[T ~string](id T) slog.Attr {
	return slog.String("stage_id", string(id))
}

func Signal[T ~string](kind T) slog.Attr {
	return slog.String("signal", string(kind))
}

func RunState[T ~string](state T) slog.Attr {
	return slog.String("run_state", string(state))
}

func Activity(name string) slog.Attr {
	return slog.String("activity", name)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
