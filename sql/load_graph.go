package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed graph.sql
var graphSQL string

// GraphFunctions lists the stored procedures LoadGraphSql installs.
var GraphFunctions = []string{
	"init_graph",
	"upsert_entity",
	"update_entity_vector",
	"select_entities_by_series",
	"select_entities_by_ids",
	"search_entities_by_vector",
	"upsert_relation",
	"select_relations_by_series",
	"select_relations_touching",
	"link_mention",
	"replace_communities",
	"upsert_community",
	"add_community_member",
	"select_communities_by_level",
	"select_community_members",
	"replace_parent_edges",
	"add_parent_edge",
	"upsert_summary",
	"select_summaries_by_level",
}

// LoadGraphSql loads the knowledge-graph stored procedures (entities,
// relations, communities, summaries, mention_links), skipping the reload
// if every function already exists and force is false.
func LoadGraphSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, GraphFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing graph functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	if _, err := db.Exec(graphSQL); err != nil {
		return fmt.Errorf("error executing graph SQL: %w", err)
	}

	exist, err := checkFunctions(db, GraphFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL graph functions loaded successfully")
	return nil
}
