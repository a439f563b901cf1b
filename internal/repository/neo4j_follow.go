package repository

import (
	"context"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherRunner executes a Cypher statement and returns a fully buffered result.
type CypherRunner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// Neo4jExecutor runs queries through the official driver against one database.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jExecutor creates the driver. Connectivity is checked separately with Verify.
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks the connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result, nil
}

const (
	cypherUserConstraint = `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`

	// The WHERE clause drops self edges before anything is merged, so no rows come back.
	cypherFollow = `WITH $follower AS fid, $author AS aid
WHERE fid <> aid
MERGE (f:User {id: fid})
MERGE (a:User {id: aid})
WITH f, a, EXISTS { MATCH (f)-[:FOLLOWS]->(a) } AS existed
MERGE (f)-[r:FOLLOWS]->(a)
ON CREATE SET r.created_at = datetime()
RETURN NOT existed AS created`

	cypherUnfollow = `OPTIONAL MATCH (:User {id: $follower})-[r:FOLLOWS]->(:User {id: $author})
DELETE r
RETURN count(r) AS removed`

	cypherExists = `RETURN EXISTS { MATCH (:User {id: $follower})-[:FOLLOWS]->(:User {id: $author}) } AS following`

	cypherFollowing = `MATCH (:User {id: $user})-[:FOLLOWS]->(a:User)
RETURN a.id AS id ORDER BY id`

	cypherFollowers = `MATCH (f:User)-[:FOLLOWS]->(:User {id: $user})
RETURN f.id AS id ORDER BY id`
)

type neo4jFollowRepository struct {
	runner CypherRunner
	log    *observability.RepoLogger
}

// NewNeo4jFollowRepository stores follow edges as (:User)-[:FOLLOWS]->(:User) relationships.
func NewNeo4jFollowRepository(runner CypherRunner) FollowRepository {
	return &neo4jFollowRepository{runner: runner, log: observability.NewRepoLogger("FOLLOWS")}
}

// EnsureNeo4jSchema creates the unique user id constraint that MERGE relies on.
func EnsureNeo4jSchema(ctx context.Context, runner CypherRunner) error {
	if _, err := runner.Run(ctx, cypherUserConstraint, nil); err != nil {
		return fmt.Errorf("failed to create neo4j constraint: %w", err)
	}
	return nil
}

func followParams(followerID, authorID uint) map[string]any {
	return map[string]any{"follower": int64(followerID), "author": int64(authorID)}
}

func (r *neo4jFollowRepository) Follow(ctx context.Context, followerID, authorID uint) (bool, error) {
	result, err := r.runner.Run(ctx, cypherFollow, followParams(followerID, authorID))
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return false, models.NewInternalError(err)
	}
	if len(result.Records) == 0 {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	created, err := recordBool(result.Records[0], "created")
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if created {
		r.log.LogCreate(ctx, map[string]interface{}{"user_id": followerID, "author_id": authorID})
	}
	return created, nil
}

func (r *neo4jFollowRepository) Unfollow(ctx context.Context, followerID, authorID uint) (bool, error) {
	result, err := r.runner.Run(ctx, cypherUnfollow, followParams(followerID, authorID))
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return false, models.NewInternalError(err)
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	removed, err := recordInt(result.Records[0], "removed")
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if removed > 0 {
		r.log.LogDelete(ctx, map[string]interface{}{"user_id": followerID, "author_id": authorID})
	}
	return removed > 0, nil
}

func (r *neo4jFollowRepository) Exists(ctx context.Context, followerID, authorID uint) (bool, error) {
	result, err := r.runner.Run(ctx, cypherExists, followParams(followerID, authorID))
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	following, err := recordBool(result.Records[0], "following")
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return following, nil
}

func (r *neo4jFollowRepository) FollowingIDs(ctx context.Context, followerID uint) ([]uint, error) {
	return r.ids(ctx, cypherFollowing, followerID)
}

func (r *neo4jFollowRepository) FollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	return r.ids(ctx, cypherFollowers, authorID)
}

func (r *neo4jFollowRepository) ids(ctx context.Context, query string, userID uint) ([]uint, error) {
	result, err := r.runner.Run(ctx, query, map[string]any{"user": int64(userID)})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	ids := make([]uint, 0, len(result.Records))
	for _, rec := range result.Records {
		id, err := recordInt(rec, "id")
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func recordBool(rec *neo4j.Record, key string) (bool, error) {
	v, ok := rec.Get(key)
	if !ok {
		return false, fmt.Errorf("neo4j record missing %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("neo4j field %q is %T, want bool", key, v)
	}
	return b, nil
}

func recordInt(rec *neo4j.Record, key string) (int64, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, fmt.Errorf("neo4j record missing %q", key)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("neo4j field %q is %T, want int64", key, v)
	}
	return n, nil
}
