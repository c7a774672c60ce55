package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (users/groups/stores/products)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  verified INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Groups & membership
CREATE TABLE IF NOT EXISTS groups(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_name_nocase ON groups(LOWER(name));

CREATE TABLE IF NOT EXISTS group_members(
  group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
  user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  joined_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (group_id, user_id)
);

-- Stores & Products
CREATE TABLE IF NOT EXISTS stores(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'piece',
  verified INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_store ON products(store_id);
CREATE INDEX IF NOT EXISTS idx_products_name  ON products(LOWER(name));

-- Runs
CREATE TABLE IF NOT EXISTS runs(
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE RESTRICT,
  store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE RESTRICT,
  state TEXT NOT NULL DEFAULT 'planning'
    CHECK (state IN ('planning','active','confirmed','shopping','completed','cancelled')),
  planned_on TEXT,
  planning_at  TEXT DEFAULT CURRENT_TIMESTAMP,
  active_at    TEXT,
  confirmed_at TEXT,
  shopping_at  TEXT,
  completed_at TEXT,
  cancelled_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_group ON runs(group_id);
CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);

CREATE TABLE IF NOT EXISTS participants(
  run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  is_leader  INTEGER NOT NULL DEFAULT 0,
  is_helper  INTEGER NOT NULL DEFAULT 0,
  is_removed INTEGER NOT NULL DEFAULT 0,
  ready      INTEGER NOT NULL DEFAULT 0,
  joined_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (run_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(user_id);

-- Bids. Quantities are decimal strings; arithmetic happens in Go.
CREATE TABLE IF NOT EXISTS bids(
  run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  quantity TEXT NOT NULL DEFAULT '0',
  interested_only INTEGER NOT NULL DEFAULT 0,
  comment TEXT NOT NULL DEFAULT '',
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (run_id, user_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_bids_product ON bids(run_id, product_id);

-- Shopping phase
CREATE TABLE IF NOT EXISTS purchases(
  run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  quantity TEXT NOT NULL,
  price    TEXT NOT NULL,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (run_id, product_id)
);

CREATE TABLE IF NOT EXISTS price_observations(
  id TEXT PRIMARY KEY,
  run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  price TEXT NOT NULL,
  note  TEXT NOT NULL DEFAULT '',
  min_quantity TEXT NOT NULL DEFAULT '0',
  observed_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_observations_item ON price_observations(run_id, product_id);

-- Leadership reassignment handshake
CREATE TABLE IF NOT EXISTS leadership_requests(
  run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
  from_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  to_user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

// seedIfEmpty inserts demo users, a group, a store and products when the
// database has never been used. Safe to run on every startup.
func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo users/group/store/products")

	type u struct {
		ID, Email, Name, Role string
	}
	users := []u{
		{"u-alice", "alice@groupcart.test", "Alice", "USER"},
		{"u-bob", "bob@groupcart.test", "Bob", "USER"},
		{"u-carol", "carol@groupcart.test", "Carol", "USER"},
		{"u-admin", "admin@groupcart.test", "Admin", "ADMIN"},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		h, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), 12)
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role,verified)
			VALUES(?,?,?,?,?,1)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, string(h), x.Role); err != nil {
			return err
		}
	}

	tx.MustExec(`INSERT INTO groups(id,name) VALUES ('g-kitchen','Shared Kitchen')`)
	tx.MustExec(`INSERT INTO group_members(group_id,user_id) VALUES
	  ('g-kitchen','u-alice'),
	  ('g-kitchen','u-bob'),
	  ('g-kitchen','u-carol')`)

	tx.MustExec(`INSERT INTO stores(id,name,address,verified) VALUES
	  ('s-metro','Metro Wholesale','12 Harbor Rd',1)`)

	tx.MustExec(`INSERT INTO products(id,store_id,name,unit,verified) VALUES
	  ('p-oats','s-metro','Rolled Oats 5kg','bag',1),
	  ('p-rice','s-metro','Basmati Rice 10kg','bag',1),
	  ('p-oil','s-metro','Sunflower Oil 3L','bottle',1),
	  ('p-beans','s-metro','Black Beans 2kg','bag',0)`)

	return tx.Commit()
}
