package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS raw_cifs (
	uuid TEXT PRIMARY KEY,
	db_name TEXT NOT NULL,
	version TEXT NOT NULL,
	source_id TEXT NOT NULL,
	spacegroup_numbers TEXT NOT NULL DEFAULT '[]',
	UNIQUE(db_name, version, source_id)
);

CREATE TABLE IF NOT EXISTS structures (
	uuid TEXT PRIMARY KEY,
	source_db TEXT NOT NULL DEFAULT '',
	source_version TEXT NOT NULL DEFAULT '',
	source_id TEXT NOT NULL DEFAULT '',
	formula TEXT NOT NULL DEFAULT '',
	chemical_system TEXT NOT NULL DEFAULT '',
	cif_spacegroup INTEGER NOT NULL DEFAULT 0,
	spacegroup INTEGER NOT NULL DEFAULT 0,
	partial_occupancies INTEGER NOT NULL DEFAULT 0,
	incorrect_formula TEXT NOT NULL DEFAULT '',
	geometry TEXT,
	duplicates TEXT
);

CREATE INDEX IF NOT EXISTS idx_structures_source
	ON structures(source_db, source_version, source_id);
CREATE INDEX IF NOT EXISTS idx_structures_chemsys
	ON structures(chemical_system);

CREATE TABLE IF NOT EXISTS clean_results (
	cif_uuid TEXT NOT NULL REFERENCES raw_cifs(uuid),
	structure_uuid TEXT NOT NULL REFERENCES structures(uuid),
	exit_status INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (cif_uuid, structure_uuid)
);

CREATE TABLE IF NOT EXISTS groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS group_nodes (
	group_id INTEGER NOT NULL REFERENCES groups(id),
	node_uuid TEXT NOT NULL,
	PRIMARY KEY (group_id, node_uuid)
);
`
