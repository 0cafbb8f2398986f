package letterpress

import (
	"database/sql"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// ErrDuplicateEmail is returned when a subscriber email is already registered.
var ErrDuplicateEmail = errors.New("letterpress: email already subscribed")

// Store wraps a SQLite database and provides CRUD operations for posts,
// body images, subscribers, and admin credentials.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, a busy timeout so writers wait
	// instead of failing with SQLITE_BUSY, and enforced foreign keys so a
	// body_images row can never reference a missing post.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    sample TEXT NOT NULL,
    header_path TEXT,
    youtube_vid TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    category TEXT NOT NULL,
    date TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS body_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id INTEGER NOT NULL REFERENCES posts(id),
    img_path TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS subscribers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    first TEXT NOT NULL,
    last TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    subscribed INTEGER NOT NULL DEFAULT 1,
    date_subscribed TEXT NOT NULL,
    date_unsubscribed TEXT
);
CREATE TABLE IF NOT EXISTS admins (
    email TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL
);
`)
	return err
}

const postColumns = `id, title, sample, header_path, youtube_vid, body, category, date`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Sample, &p.HeaderPath, &p.YoutubeVid, &p.Body, &p.Category, &p.Date)
	return p, err
}

// ListPosts returns all posts newest-first (descending id).
func (s *Store) ListPosts() ([]Post, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPostsByCategory returns the posts in one category, newest-first.
func (s *Store) ListPostsByCategory(category string) ([]Post, error) {
	rows, err := s.db.Query(`SELECT `+postColumns+` FROM posts WHERE category = ? ORDER BY id DESC`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns a single post by id, or ErrNotFound.
func (s *Store) GetPost(id int64) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
}

// PostAssets returns the body images referencing the given post id.
func (s *Store) PostAssets(postID int64) ([]PostAsset, error) {
	rows, err := s.db.Query(`SELECT id, post_id, img_path FROM body_images WHERE post_id = ? ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []PostAsset
	for rows.Next() {
		var a PostAsset
		if err := rows.Scan(&a.ID, &a.PostID, &a.ImgPath); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// NextPostID predicts the id the next created post will receive. Display
// only; CreatePost derives the real id from the insert itself, so two
// concurrent authors can never collide the way a read-then-increment would.
func (s *Store) NextPostID() (int64, error) {
	var next int64
	err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM posts`).Scan(&next)
	return next, err
}

// CreatePost inserts the post row and one body_images row per asset filename
// in a single transaction. The store assigns the id; the header and asset
// paths are derived from it only after the insert, and commit makes the post
// and its assets visible as one unit. Returns the assigned id.
func (s *Store) CreatePost(p Post, headerFile string, assetFiles []string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO posts (title, sample, header_path, youtube_vid, body, category, date) VALUES (?, ?, NULL, ?, ?, ?, ?)`,
		p.Title, p.Sample, p.YoutubeVid, p.Body, p.Category, p.Date)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if headerFile != "" {
		if _, err := tx.Exec(`UPDATE posts SET header_path = ? WHERE id = ?`, AssetPath(id, headerFile), id); err != nil {
			return 0, err
		}
	}
	for _, name := range assetFiles {
		if _, err := tx.Exec(`INSERT INTO body_images (post_id, img_path) VALUES (?, ?)`, id, AssetPath(id, name)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePost overwrites the mutable fields of an existing post. Category and
// date are deliberately left untouched. The header path is replaced only when
// newHeaderPath is valid; otherwise the stored value is preserved as-is.
// Returns ErrNotFound when no post has the given id.
func (s *Store) UpdatePost(id int64, title, sample, youtubeVid, body string, newHeaderPath sql.NullString) error {
	var (
		res sql.Result
		err error
	)
	if newHeaderPath.Valid {
		res, err = s.db.Exec(`UPDATE posts SET title = ?, sample = ?, youtube_vid = ?, body = ?, header_path = ? WHERE id = ?`,
			title, sample, youtubeVid, body, newHeaderPath, id)
	} else {
		res, err = s.db.Exec(`UPDATE posts SET title = ?, sample = ?, youtube_vid = ?, body = ? WHERE id = ?`,
			title, sample, youtubeVid, body, id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSubscriber registers a new mailing-list entrant with today's date.
// A duplicate email is rejected without mutating state.
func (s *Store) AddSubscriber(first, last, email string) error {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM subscribers WHERE email = ?`, email).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return ErrDuplicateEmail
	}
	_, err := s.db.Exec(`INSERT INTO subscribers (first, last, email, subscribed, date_subscribed) VALUES (?, ?, ?, 1, ?)`,
		first, last, email, time.Now().Format("2006-01-02"))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// Constraint backstop for a concurrent insert between check and write.
		return ErrDuplicateEmail
	}
	return err
}

// Unsubscribe retires a subscriber by flipping the flag and stamping the
// date. The row itself is kept. Returns ErrNotFound for an unknown email.
func (s *Store) Unsubscribe(email string) error {
	res, err := s.db.Exec(`UPDATE subscribers SET subscribed = 0, date_unsubscribed = ? WHERE email = ? AND subscribed = 1`,
		time.Now().Format("2006-01-02"), email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscribed returns every subscriber still flagged as subscribed.
func (s *Store) ListSubscribed() ([]Subscriber, error) {
	rows, err := s.db.Query(`SELECT id, first, last, email, subscribed, date_subscribed, date_unsubscribed FROM subscribers WHERE subscribed = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var (
			sub        Subscriber
			subscribed int
		)
		if err := rows.Scan(&sub.ID, &sub.First, &sub.Last, &sub.Email, &subscribed, &sub.DateSubscribed, &sub.DateUnsubscribed); err != nil {
			return nil, err
		}
		sub.Subscribed = subscribed == 1
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CountSubscribers returns the total number of subscriber rows, retired
// ones included.
func (s *Store) CountSubscribers() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}

// GetAdmin returns the stored credential for an identity, or ErrNotFound.
func (s *Store) GetAdmin(email string) (Admin, error) {
	var a Admin
	err := s.db.QueryRow(`SELECT email, password_hash FROM admins WHERE email = ?`, email).Scan(&a.Email, &a.PasswordHash)
	return a, err
}

// UpsertAdmin stores (or replaces) an admin credential. There is no HTTP
// route for this; provisioning happens through the CLI.
func (s *Store) UpsertAdmin(email, passwordHash string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO admins (email, password_hash) VALUES (?, ?)`, email, passwordHash)
	return err
}

// AssetPath returns the path persisted for an uploaded file: relative to the
// serving root so the static directory can move between deployments.
func AssetPath(postID int64, filename string) string {
	return path.Join("static", postImgsSubdir, strconv.FormatInt(postID, 10), filename)
}
