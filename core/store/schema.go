package store

// schema holds one entry per schema version. Entries are applied in order and
// never edited once released; changes go into a new entry.
var schema = []string{
	// version 1
	`
CREATE TABLE IF NOT EXISTS results (
  id text primary key,
  orderId text not null unique,
  rawText text not null,
  title text not null,
  model text not null default '',
  provider text not null default '',
  finishReason text not null default '',
  chunks integer not null default 1,
  frozen boolean not null default false,
  created datetime not null,
  updated datetime not null
);

CREATE INDEX IF NOT EXISTS results_updated ON results (updated);
	`,
}
