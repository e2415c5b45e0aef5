package store

// Table names used across the engine and both store backends.
const (
	TablePeople       = "people"
	TableOrgs         = "organizations"
	TablePhones       = "phones"
	TableEmails       = "emails"
	TableProfiles     = "profiles"
	TableAssets       = "assets"
	TablePersonPhones = "person_phones"
	TablePersonEmails = "person_emails"
	TablePersonProfs  = "person_profiles"
	TablePersonOrgs   = "person_organizations"
	TablePersonAssets = "person_assets"
	TableAssetPhones  = "asset_phones"
	TableAssetOrgs    = "asset_organizations"
)

const postgresMigration = `
CREATE TABLE IF NOT EXISTS people (
	id          BIGSERIAL PRIMARY KEY,
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	lead_status TEXT NOT NULL DEFAULT 'new',
	tags        JSONB NOT NULL DEFAULT '[]',
	user_ref    TEXT,
	details     JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS organizations (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	org_type      TEXT,
	address       TEXT,
	city          TEXT,
	state         TEXT,
	zip           TEXT,
	country       TEXT,
	website       TEXT,
	category      TEXT,
	company_email TEXT,
	details       JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS phones (
	id       BIGSERIAL PRIMARY KEY,
	number   TEXT NOT NULL,
	status   TEXT NOT NULL DEFAULT 'active',
	metadata JSONB NOT NULL DEFAULT '{}',
	UNIQUE (number)
);

CREATE TABLE IF NOT EXISTS emails (
	id       BIGSERIAL PRIMARY KEY,
	address  TEXT NOT NULL,
	status   TEXT NOT NULL DEFAULT 'active',
	metadata JSONB NOT NULL DEFAULT '{}',
	UNIQUE (address)
);

CREATE TABLE IF NOT EXISTS profiles (
	id           BIGSERIAL PRIMARY KEY,
	url          TEXT NOT NULL,
	profile_name TEXT,
	metadata     JSONB NOT NULL DEFAULT '{}',
	UNIQUE (url)
);

CREATE TABLE IF NOT EXISTS assets (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city    TEXT,
	state   TEXT,
	zip     TEXT,
	details JSONB NOT NULL DEFAULT '{}',
	UNIQUE (name, address)
);

CREATE TABLE IF NOT EXISTS person_phones (
	id         BIGSERIAL PRIMARY KEY,
	person_id  BIGINT NOT NULL REFERENCES people(id),
	phone_id   BIGINT NOT NULL REFERENCES phones(id),
	label      TEXT,
	is_primary BOOLEAN NOT NULL DEFAULT false,
	source     TEXT,
	UNIQUE (person_id, phone_id)
);

CREATE TABLE IF NOT EXISTS person_emails (
	id         BIGSERIAL PRIMARY KEY,
	person_id  BIGINT NOT NULL REFERENCES people(id),
	email_id   BIGINT NOT NULL REFERENCES emails(id),
	label      TEXT,
	is_primary BOOLEAN NOT NULL DEFAULT false,
	source     TEXT,
	UNIQUE (person_id, email_id)
);

CREATE TABLE IF NOT EXISTS person_profiles (
	id         BIGSERIAL PRIMARY KEY,
	person_id  BIGINT NOT NULL REFERENCES people(id),
	profile_id BIGINT NOT NULL REFERENCES profiles(id),
	is_primary BOOLEAN NOT NULL DEFAULT false,
	source     TEXT,
	UNIQUE (person_id, profile_id)
);

CREATE TABLE IF NOT EXISTS person_organizations (
	id              BIGSERIAL PRIMARY KEY,
	person_id       BIGINT NOT NULL REFERENCES people(id),
	organization_id BIGINT NOT NULL REFERENCES organizations(id),
	title           TEXT,
	is_primary      BOOLEAN NOT NULL DEFAULT false,
	UNIQUE (person_id, organization_id)
);

CREATE TABLE IF NOT EXISTS person_assets (
	id        BIGSERIAL PRIMARY KEY,
	person_id BIGINT NOT NULL REFERENCES people(id),
	asset_id  BIGINT NOT NULL REFERENCES assets(id),
	role      TEXT NOT NULL,
	UNIQUE (person_id, asset_id, role)
);

CREATE TABLE IF NOT EXISTS asset_phones (
	id       BIGSERIAL PRIMARY KEY,
	asset_id BIGINT NOT NULL REFERENCES assets(id),
	phone_id BIGINT NOT NULL REFERENCES phones(id),
	label    TEXT,
	source   TEXT,
	UNIQUE (asset_id, phone_id)
);

CREATE TABLE IF NOT EXISTS asset_organizations (
	id              BIGSERIAL PRIMARY KEY,
	asset_id        BIGINT NOT NULL REFERENCES assets(id),
	organization_id BIGINT NOT NULL REFERENCES organizations(id),
	role            TEXT NOT NULL,
	source          TEXT,
	UNIQUE (asset_id, organization_id, role)
);

CREATE INDEX IF NOT EXISTS idx_people_lead_status ON people(lead_status);
CREATE INDEX IF NOT EXISTS idx_person_phones_phone ON person_phones(phone_id);
CREATE INDEX IF NOT EXISTS idx_person_emails_email ON person_emails(email_id);
CREATE INDEX IF NOT EXISTS idx_person_orgs_org ON person_organizations(organization_id);
CREATE INDEX IF NOT EXISTS idx_person_assets_asset ON person_assets(asset_id);
`

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS people (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	lead_status TEXT NOT NULL DEFAULT 'new',
	tags        TEXT NOT NULL DEFAULT '[]',
	user_ref    TEXT,
	details     TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS organizations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	org_type      TEXT,
	address       TEXT,
	city          TEXT,
	state         TEXT,
	zip           TEXT,
	country       TEXT,
	website       TEXT,
	category      TEXT,
	company_email TEXT,
	details       TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS phones (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	number   TEXT NOT NULL,
	status   TEXT NOT NULL DEFAULT 'active',
	metadata TEXT NOT NULL DEFAULT '{}',
	UNIQUE (number)
);

CREATE TABLE IF NOT EXISTS emails (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	address  TEXT NOT NULL,
	status   TEXT NOT NULL DEFAULT 'active',
	metadata TEXT NOT NULL DEFAULT '{}',
	UNIQUE (address)
);

CREATE TABLE IF NOT EXISTS profiles (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL,
	profile_name TEXT,
	metadata     TEXT NOT NULL DEFAULT '{}',
	UNIQUE (url)
);

CREATE TABLE IF NOT EXISTS assets (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city    TEXT,
	state   TEXT,
	zip     TEXT,
	details TEXT NOT NULL DEFAULT '{}',
	UNIQUE (name, address)
);

CREATE TABLE IF NOT EXISTS person_phones (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	person_id  INTEGER NOT NULL REFERENCES people(id),
	phone_id   INTEGER NOT NULL REFERENCES phones(id),
	label      TEXT,
	is_primary INTEGER NOT NULL DEFAULT 0,
	source     TEXT,
	UNIQUE (person_id, phone_id)
);

CREATE TABLE IF NOT EXISTS person_emails (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	person_id  INTEGER NOT NULL REFERENCES people(id),
	email_id   INTEGER NOT NULL REFERENCES emails(id),
	label      TEXT,
	is_primary INTEGER NOT NULL DEFAULT 0,
	source     TEXT,
	UNIQUE (person_id, email_id)
);

CREATE TABLE IF NOT EXISTS person_profiles (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	person_id  INTEGER NOT NULL REFERENCES people(id),
	profile_id INTEGER NOT NULL REFERENCES profiles(id),
	is_primary INTEGER NOT NULL DEFAULT 0,
	source     TEXT,
	UNIQUE (person_id, profile_id)
);

CREATE TABLE IF NOT EXISTS person_organizations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	person_id       INTEGER NOT NULL REFERENCES people(id),
	organization_id INTEGER NOT NULL REFERENCES organizations(id),
	title           TEXT,
	is_primary      INTEGER NOT NULL DEFAULT 0,
	UNIQUE (person_id, organization_id)
);

CREATE TABLE IF NOT EXISTS person_assets (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	person_id INTEGER NOT NULL REFERENCES people(id),
	asset_id  INTEGER NOT NULL REFERENCES assets(id),
	role      TEXT NOT NULL,
	UNIQUE (person_id, asset_id, role)
);

CREATE TABLE IF NOT EXISTS asset_phones (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id INTEGER NOT NULL REFERENCES assets(id),
	phone_id INTEGER NOT NULL REFERENCES phones(id),
	label    TEXT,
	source   TEXT,
	UNIQUE (asset_id, phone_id)
);

CREATE TABLE IF NOT EXISTS asset_organizations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id        INTEGER NOT NULL REFERENCES assets(id),
	organization_id INTEGER NOT NULL REFERENCES organizations(id),
	role            TEXT NOT NULL,
	source          TEXT,
	UNIQUE (asset_id, organization_id, role)
);

CREATE INDEX IF NOT EXISTS idx_people_lead_status ON people(lead_status);
CREATE INDEX IF NOT EXISTS idx_person_phones_phone ON person_phones(phone_id);
CREATE INDEX IF NOT EXISTS idx_person_emails_email ON person_emails(email_id);
CREATE INDEX IF NOT EXISTS idx_person_orgs_org ON person_organizations(organization_id);
CREATE INDEX IF NOT EXISTS idx_person_assets_asset ON person_assets(asset_id);
`
