package letterpress

import "database/sql"

// Post is a blog entry. HeaderPath is relative to the serving root
// (e.g. "static/post_imgs/3/cover.jpg") and NULL when the post has no
// header image, never the empty string.
type Post struct {
	ID         int64
	Title      string
	Sample     string
	HeaderPath sql.NullString
	YoutubeVid string
	Body       string // raw HTML authored in the admin form
	Category   string
	Date       string // YYYY-MM-DD
}

// PostAsset is an image embedded in a post body, keyed by the owning post id.
type PostAsset struct {
	ID      int64
	PostID  int64
	ImgPath string
}

// Subscriber is a mailing-list entrant. Rows are never deleted; unsubscribing
// flips Subscribed and stamps DateUnsubscribed.
type Subscriber struct {
	ID               int64
	First            string
	Last             string
	Email            string
	Subscribed       bool
	DateSubscribed   string
	DateUnsubscribed sql.NullString
}

// Admin is a stored operator credential. The password is kept only as a
// bcrypt digest.
type Admin struct {
	Email        string
	PasswordHash string
}
