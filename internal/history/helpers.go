package history

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func scanTransition(scanner interface{ Scan(dest ...any) error }) (Transition, error) {
	var (
		id            int64
		jobID         string
		sessionID     sql.NullString
		sourcePath    string
		state         string
		outcome       sql.NullString
		detail        sql.NullString
		outputPath    sql.NullString
		exitCode      sql.NullInt64
		attempt       int
		presetVersion sql.NullString
		createdRaw    string
	)
	if err := scanner.Scan(
		&id,
		&jobID,
		&sessionID,
		&sourcePath,
		&state,
		&outcome,
		&detail,
		&outputPath,
		&exitCode,
		&attempt,
		&presetVersion,
		&createdRaw,
	); err != nil {
		return Transition{}, err
	}

	t := Transition{
		ID:            id,
		JobID:         jobID,
		SessionID:     sessionID.String,
		SourcePath:    sourcePath,
		State:         state,
		Outcome:       outcome.String,
		Detail:        detail.String,
		OutputPath:    outputPath.String,
		Attempt:       attempt,
		PresetVersion: presetVersion.String,
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		t.ExitCode = &code
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		t.CreatedAt = created
	}
	return t, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
