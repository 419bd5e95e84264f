package scene

import (
	"database/sql"
	"fmt"

	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

const initSchema = `
  CREATE TABLE IF NOT EXISTS scene (
    mode_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
  );

  CREATE TABLE IF NOT EXISTS scene_keyframe (
    mode_id INTEGER NOT NULL REFERENCES scene(mode_id) ON DELETE CASCADE,
    hour INTEGER NOT NULL,
    minute INTEGER NOT NULL,
    r INTEGER NOT NULL,
    g INTEGER NOT NULL,
    b INTEGER NOT NULL,
    cool_white INTEGER NOT NULL,
    warm_white INTEGER NOT NULL,
    brightness INTEGER NOT NULL
  );
`

// Store persists custom scenes so the 0x0B/0x0C slots survive restarts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(initSchema); err != nil {
		return nil, fmt.Errorf("initialising scene schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes a scene and its keyframes, replacing any previous definition
// for the same mode ID.
func (s *Store) Save(scene *Scene) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving scene %q: %w", scene.Name(), err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM scene_keyframe WHERE mode_id = $1`, int(scene.Mode())); err != nil {
		return fmt.Errorf("saving scene %q: %w", scene.Name(), err)
	}
	if _, err := tx.Exec(
		`INSERT INTO scene (mode_id, name) VALUES ($1, $2)
       ON CONFLICT(mode_id) DO UPDATE SET name = excluded.name`,
		int(scene.Mode()), scene.Name(),
	); err != nil {
		return fmt.Errorf("saving scene %q: %w", scene.Name(), err)
	}
	for _, k := range scene.Keyframes() {
		if _, err := tx.Exec(
			`INSERT INTO scene_keyframe
         (mode_id, hour, minute, r, g, b, cool_white, warm_white, brightness)
       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			int(scene.Mode()), k.Hour, k.Minute,
			k.Color.R, k.Color.G, k.Color.B,
			k.Color.CoolWhite, k.Color.WarmWhite, k.Brightness,
		); err != nil {
			return fmt.Errorf("saving keyframes for scene %q: %w", scene.Name(), err)
		}
	}
	return tx.Commit()
}

// Delete removes a persisted scene. Unknown mode IDs are a no-op.
func (s *Store) Delete(mode protocol.Mode) error {
	if _, err := s.db.Exec(`DELETE FROM scene_keyframe WHERE mode_id = $1`, int(mode)); err != nil {
		return fmt.Errorf("deleting scene keyframes for mode %s: %w", mode, err)
	}
	if _, err := s.db.Exec(`DELETE FROM scene WHERE mode_id = $1`, int(mode)); err != nil {
		return fmt.Errorf("deleting scene for mode %s: %w", mode, err)
	}
	return nil
}

// LoadAll reads every persisted scene.
func (s *Store) LoadAll() ([]*Scene, error) {
	rows, err := s.db.Query(`SELECT mode_id, name FROM scene ORDER BY mode_id`)
	if err != nil {
		return nil, fmt.Errorf("reading scenes: %w", err)
	}
	defer rows.Close()

	type header struct {
		mode protocol.Mode
		name string
	}
	var headers []header
	for rows.Next() {
		var h header
		var mode int
		if err := rows.Scan(&mode, &h.name); err != nil {
			return nil, fmt.Errorf("reading scene row: %w", err)
		}
		h.mode = protocol.Mode(mode)
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading scenes: %w", err)
	}

	var scenes []*Scene
	for _, h := range headers {
		keyframes, err := s.loadKeyframes(h.mode)
		if err != nil {
			return nil, err
		}
		scene, err := New(h.name, h.mode, keyframes)
		if err != nil {
			return nil, fmt.Errorf("rebuilding persisted scene %q: %w", h.name, err)
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

func (s *Store) loadKeyframes(mode protocol.Mode) ([]Keyframe, error) {
	rows, err := s.db.Query(
		`SELECT hour, minute, r, g, b, cool_white, warm_white, brightness
       FROM scene_keyframe WHERE mode_id = $1 ORDER BY hour, minute`,
		int(mode),
	)
	if err != nil {
		return nil, fmt.Errorf("reading keyframes for mode %s: %w", mode, err)
	}
	defer rows.Close()

	var keyframes []Keyframe
	for rows.Next() {
		var k Keyframe
		if err := rows.Scan(
			&k.Hour, &k.Minute,
			&k.Color.R, &k.Color.G, &k.Color.B,
			&k.Color.CoolWhite, &k.Color.WarmWhite, &k.Brightness,
		); err != nil {
			return nil, fmt.Errorf("reading keyframe row: %w", err)
		}
		keyframes = append(keyframes, k)
	}
	return keyframes, rows.Err()
}
