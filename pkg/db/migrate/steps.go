package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository/combo"
)

// Latest is the schema version created by this release
const Latest = 23

//go:embed migrations
var migrations embed.FS

//go:embed latest.sql
var latestSchema string

// Step transforms the schema from version From to To.
// Apply only uses the given querier, the version marker is set by the engine.
type Step struct {
	From, To int
	Name     string
	Apply    func(ctx context.Context, q backend.Querier) error
}

// Fixup repairs data after a migration chain that crossed version Since.
// Fixups are written against the latest schema.
type Fixup struct {
	Since int
	Name  string
	Apply func(ctx context.Context, q backend.Querier) error
}

type script struct {
	name string
	sql  string
}

var loadScripts = sync.OnceValues(func() (map[int]script, error) {
	return readScripts(migrations, "migrations")
})

// readScripts collects the up scripts of dir keyed by version
func readScripts(fsys fs.FS, dir string) (map[int]script, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ret := map[int]script{}
	version, err := src.First()
	for err == nil {
		var r io.ReadCloser
		var identifier string
		if r, identifier, err = src.ReadUp(version); err != nil {
			return nil, fmt.Errorf("read script %d: %w", version, err)
		}
		data, readErr := io.ReadAll(r)
		r.Close()
		if readErr != nil {
			return nil, readErr
		}
		ret[int(version)] = script{name: identifier, sql: string(data)}
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return ret, nil
}

// DefaultSteps returns the migration chain 0 -> Latest
func DefaultSteps() ([]Step, error) {
	scripts, err := loadScripts()
	if err != nil {
		return nil, err
	}
	hooks := map[int]func(ctx context.Context, q backend.Querier) error{
		5:  resetLapSequences,
		14: rekeySessionsOnCombos,
	}
	steps := make([]Step, 0, Latest)
	for v := 1; v <= Latest; v++ {
		s, ok := scripts[v]
		if !ok {
			return nil, fmt.Errorf("no migration script for version %d", v)
		}
		steps = append(steps, Step{
			From:  v - 1,
			To:    v,
			Name:  s.name,
			Apply: scriptStep(s.sql, hooks[v]),
		})
	}
	return steps, nil
}

func scriptStep(sql string, after func(context.Context, backend.Querier) error) func(
	context.Context, backend.Querier) error {
	return func(ctx context.Context, q backend.Querier) error {
		if err := execScript(ctx, q, sql); err != nil {
			return err
		}
		if after != nil {
			return after(ctx, q)
		}
		return nil
	}
}

// execScript runs each statement of a migration script
func execScript(ctx context.Context, q backend.Querier, sql string) error {
	for _, stmt := range splitStatements(q.Dialect().ExpandDDL(sql)) {
		if _, err := q.Exec(ctx, stmt, nil); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// splitStatements splits a script at semicolons ending a line.
// Comment lines are dropped.
func splitStatements(script string) []string {
	var ret []string
	var cur strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			ret = append(ret, stmt)
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		ret = append(ret, rest)
	}
	return ret
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// v5 copies the lap ids, the postgres sequences have to follow
func resetLapSequences(ctx context.Context, q backend.Querier) error {
	for _, table := range []string{"sessions", "player_in_session", "laps"} {
		if err := backend.ResetSequence(ctx, q, table); err != nil {
			return err
		}
	}
	return nil
}

type sessionTrack struct {
	ID      int64 `db:"id"`
	TrackID int64 `db:"track_id"`
}

// v14 replaces sessions.track_id by a combo of the track and all cars driven
// in the session.
func rekeySessionsOnCombos(ctx context.Context, q backend.Querier) error {
	sessions, err := backend.Select[sessionTrack](ctx, q,
		"select id, track_id from sessions order by id", nil)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		carIDs, err := backend.Column[int64](ctx, q,
			"select distinct car_id from player_in_session where session_id=:id",
			backend.Params{"id": s.ID})
		if err != nil {
			return err
		}
		comboID, err := combo.Resolve(ctx, q, s.TrackID, carIDs)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, "update sessions set combo_id=:comboID where id=:id",
			backend.Params{"comboID": comboID, "id": s.ID}); err != nil {
			return err
		}
	}
	_, err = q.Exec(ctx, "alter table sessions drop column track_id", nil)
	return err
}
