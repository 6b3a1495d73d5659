package store

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"bookshelf/internal/database"
	"bookshelf/internal/models"
)

// testDB connects to the test database named by TEST_DATABASE_URL, runs
// migrations and wipes all rows. Tests are skipped when no database is
// available.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE users, books, shelf_entries CASCADE`); err != nil {
		t.Fatalf("truncate test database: %v", err)
	}

	return db
}

func mustCreateUser(t *testing.T, users *UserStore, username string) *models.User {
	t.Helper()
	u, err := users.Create(username, username+"@example.com", "password1")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestUserCreateAndVerify(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)

	u := mustCreateUser(t, users, "alice")
	if u.Role != models.RoleGuest {
		t.Errorf("new user role = %s, want guest", u.Role)
	}
	if u.PasswordHash == "password1" {
		t.Fatal("password stored in plaintext")
	}

	got, err := users.VerifyCredentials("alice", "password1")
	if err != nil {
		t.Fatalf("verify credentials: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("verified wrong user")
	}

	if _, err := users.VerifyCredentials("alice", "wrongpass1"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password error = %v, want ErrWrongPassword", err)
	}
	if _, err := users.VerifyCredentials("nobody", "password1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestUserDuplicates(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)

	mustCreateUser(t, users, "bob")

	if _, err := users.Create("bob", "other@example.com", "password1"); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("duplicate username error = %v, want ErrDuplicateUsername", err)
	}
	if _, err := users.Create("bobby", "bob@example.com", "password1"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate email error = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserCreateEscapesInput(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)

	u, err := users.Create("<script>", "xss@example.com", "password1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Username != "&lt;script&gt;" {
		t.Errorf("username = %q, not escaped", u.Username)
	}

	// Lookups escape the same way, so the raw input still resolves.
	found, err := users.FindByUsername("<script>")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if found == nil || found.ID != u.ID {
		t.Error("escaped username not found via raw input")
	}
}

func TestToggleRoleSelfAction(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)

	admin := mustCreateUser(t, users, "admin1")
	other := mustCreateUser(t, users, "member")

	if _, err := users.ToggleRole(admin.ID, admin.ID); !errors.Is(err, ErrSelfAction) {
		t.Errorf("self toggle error = %v, want ErrSelfAction", err)
	}

	updated, err := users.ToggleRole(admin.ID, other.ID)
	if err != nil {
		t.Fatalf("toggle role: %v", err)
	}
	if updated.Role != models.RoleAdmin {
		t.Errorf("toggled role = %s, want admin", updated.Role)
	}

	updated, err = users.ToggleRole(admin.ID, other.ID)
	if err != nil {
		t.Fatalf("toggle role back: %v", err)
	}
	if updated.Role != models.RoleGuest {
		t.Errorf("toggled role = %s, want guest", updated.Role)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	admin := mustCreateUser(t, users, "admin2")
	victim := mustCreateUser(t, users, "victim")

	book, err := books.FindOrCreate(NewBook{Title: "Dune", Author: "Frank Herbert"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if _, err := shelf.Add(victim.ID, book.ID, intPtr(5), nil); err != nil {
		t.Fatalf("add shelf entry: %v", err)
	}

	if err := users.Delete(admin.ID, admin.ID); !errors.Is(err, ErrSelfAction) {
		t.Errorf("self delete error = %v, want ErrSelfAction", err)
	}
	if err := users.Delete(admin.ID, victim.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM shelf_entries WHERE user_id = $1`, victim.ID).Scan(&n); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if n != 0 {
		t.Errorf("shelf entries after delete = %d, want 0", n)
	}

	// The shared catalog row survives.
	remaining, err := books.FindByID(book.ID)
	if err != nil || remaining == nil {
		t.Errorf("book missing after owner delete: %v", err)
	}
}

func TestBookFindOrCreateConverges(t *testing.T) {
	db := testDB(t)
	books := NewBookStore(db)

	first, err := books.FindOrCreate(NewBook{Title: "  Hyperion ", Author: "Dan Simmons", Year: intPtr(1989)})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same title and author resolves to the same row even with different
	// optional fields.
	second, err := books.FindOrCreate(NewBook{Title: "Hyperion", Author: "Dan Simmons", ISBN: strPtr("9780553283686")})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same (title, author) produced different rows: %s vs %s", first.ID, second.ID)
	}

	// The existing row's fields win.
	if second.Year == nil || *second.Year != 1989 {
		t.Error("existing row fields were overwritten")
	}

	count, err := books.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("book count = %d, want 1", count)
	}
}

func TestBookFindOrCreateByExternalID(t *testing.T) {
	db := testDB(t)
	books := NewBookStore(db)

	ext := "vol-abc123"
	first, err := books.FindOrCreate(NewBook{Title: "Neuromancer", Author: "William Gibson", ExternalID: &ext})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A differently-titled submission with the same external ID reuses the row.
	second, err := books.FindOrCreate(NewBook{Title: "Neuromancer (Reissue)", Author: "William Gibson", ExternalID: &ext})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same external ID produced different rows")
	}
}

func TestShelfAddDuplicate(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	u := mustCreateUser(t, users, "carol")
	book, err := books.FindOrCreate(NewBook{Title: "Solaris", Author: "Stanislaw Lem"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	if _, err := shelf.Add(u.ID, book.ID, intPtr(4), strPtr("haunting")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := shelf.Add(u.ID, book.ID, nil, nil); !errors.Is(err, ErrAlreadyOnShelf) {
		t.Errorf("duplicate add error = %v, want ErrAlreadyOnShelf", err)
	}

	if _, err := shelf.Add(u.ID, book.ID, intPtr(9), nil); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("out of range rating error = %v, want ErrInvalidRating", err)
	}
}

func TestShelfUpdateAndRemove(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	u := mustCreateUser(t, users, "dave")
	book, err := books.FindOrCreate(NewBook{Title: "Blindsight", Author: "Peter Watts"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	if _, err := shelf.Update(u.ID, book.ID, intPtr(3), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing entry error = %v, want ErrNotFound", err)
	}

	if _, err := shelf.Add(u.ID, book.ID, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	entry, err := shelf.Update(u.ID, book.ID, intPtr(5), strPtr("brutal & brilliant"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if entry.Rating == nil || *entry.Rating != 5 {
		t.Error("rating not updated")
	}
	if entry.Review == nil || *entry.Review != "brutal &amp; brilliant" {
		t.Errorf("review = %v, want escaped text", entry.Review)
	}

	if err := shelf.Remove(u.ID, book.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing again is a no-op.
	if err := shelf.Remove(u.ID, book.ID); err != nil {
		t.Errorf("second remove: %v", err)
	}

	item, err := shelf.Get(u.ID, book.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Error("entry still present after remove")
	}
}

func TestShelfSummaryLimits(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	u := mustCreateUser(t, users, "erin")
	titles := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, title := range titles {
		book, err := books.FindOrCreate(NewBook{Title: title, Author: "Author " + title})
		if err != nil {
			t.Fatalf("create book: %v", err)
		}
		rating := i%5 + 1
		if _, err := shelf.Add(u.ID, book.ID, &rating, nil); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	summary, err := shelf.Summary(u.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary.RecentBooks) != 5 {
		t.Errorf("recent books = %d, want 5", len(summary.RecentBooks))
	}
	if len(summary.TopRated) != 5 {
		t.Errorf("top rated = %d, want 5", len(summary.TopRated))
	}

	// Top rated is ordered by rating descending.
	for i := 1; i < len(summary.TopRated); i++ {
		prev, cur := summary.TopRated[i-1].Rating, summary.TopRated[i].Rating
		if *prev < *cur {
			t.Errorf("top rated out of order at %d: %d < %d", i, *prev, *cur)
		}
	}
}

func TestAdminStatsOrdering(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	heavy := mustCreateUser(t, users, "heavyreader")
	light := mustCreateUser(t, users, "lightreader")

	popular, err := books.FindOrCreate(NewBook{Title: "Popular", Author: "Someone"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	niche, err := books.FindOrCreate(NewBook{Title: "Niche", Author: "Someone Else"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	// Popular: two readers, avg 3. Niche: one reader, rated 5.
	if _, err := shelf.Add(heavy.ID, popular.ID, intPtr(2), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := shelf.Add(light.ID, popular.ID, intPtr(4), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := shelf.Add(heavy.ID, niche.ID, intPtr(5), nil); err != nil {
		t.Fatal(err)
	}

	stats, err := shelf.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if len(stats.PopularBooks) != 2 || stats.PopularBooks[0].Title != "Popular" {
		t.Errorf("popular ordering wrong: %+v", stats.PopularBooks)
	}
	if stats.PopularBooks[0].ReaderCount != 2 {
		t.Errorf("popular reader count = %d, want 2", stats.PopularBooks[0].ReaderCount)
	}

	if len(stats.TopRatedBooks) != 2 || stats.TopRatedBooks[0].Title != "Niche" {
		t.Errorf("top rated ordering wrong: %+v", stats.TopRatedBooks)
	}

	if len(stats.ActiveUsers) != 2 || stats.ActiveUsers[0].Username != "heavyreader" {
		t.Errorf("active users ordering wrong: %+v", stats.ActiveUsers)
	}
}

func TestTopAuthors(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	books := NewBookStore(db)
	shelf := NewShelfStore(db)

	u := mustCreateUser(t, users, "frank")

	entries := []struct {
		title, author string
		rating        *int
	}{
		{"One", "Low Author", intPtr(2)},
		{"Two", "High Author", intPtr(5)},
		{"Three", "Unrated Author", nil},
	}
	for _, e := range entries {
		book, err := books.FindOrCreate(NewBook{Title: e.title, Author: e.author})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := shelf.Add(u.ID, book.ID, e.rating, nil); err != nil {
			t.Fatal(err)
		}
	}

	authors, err := shelf.TopAuthors(u.ID, 2)
	if err != nil {
		t.Fatalf("top authors: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("authors = %d, want 2", len(authors))
	}
	if authors[0] != "High Author" {
		t.Errorf("authors[0] = %q, want High Author", authors[0])
	}
	if authors[1] != "Low Author" {
		t.Errorf("authors[1] = %q, want Low Author (unrated sorts last)", authors[1])
	}
}
