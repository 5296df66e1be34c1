package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/spanner"
	dbadmin "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instadmin "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DatabasePath returns the resource name of a Spanner database.
func DatabasePath(project, instance, database string) string {
	return fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, database)
}

// SetupDatabase creates the instance when it is missing and recreates the
// database with statements applied. It is meant for the emulator.
func SetupDatabase(ctx context.Context, project, instance, database string, statements []string) error {
	instClient, err := instadmin.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("creating instance admin client: %v", err)
	}
	defer instClient.Close()

	instPath := fmt.Sprintf("projects/%s/instances/%s", project, instance)
	op, err := instClient.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + project,
		InstanceId: instance,
		Instance: &instancepb.Instance{
			Name:        instPath,
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", project),
			DisplayName: instance,
			NodeCount:   1,
		},
	})
	switch {
	case status.Code(err) == codes.AlreadyExists:
	case err != nil:
		return fmt.Errorf("create instance failed: %v", err)
	default:
		if _, err := op.Wait(ctx); err != nil {
			return fmt.Errorf("create instance failed: %v", err)
		}
	}

	dbClient, err := dbadmin.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("creating database admin client: %v", err)
	}
	defer dbClient.Close()

	dbPath := DatabasePath(project, instance, database)
	if err := dbClient.DropDatabase(ctx, &databasepb.DropDatabaseRequest{Database: dbPath}); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("drop database failed: %v", err)
	}

	dbOp, err := dbClient.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          instPath,
		CreateStatement: "CREATE DATABASE `" + database + "`",
		ExtraStatements: statements,
	})
	if err != nil {
		return fmt.Errorf("create database failed: %v", err)
	}
	if _, err := dbOp.Wait(ctx); err != nil {
		return fmt.Errorf("create database failed: %v", err)
	}
	return nil
}

// TestClient returns a client of the database.
func TestClient(ctx context.Context, project, instance, database string) (*spanner.Client, error) {
	client, err := spanner.NewClient(ctx, DatabasePath(project, instance, database))
	if err != nil {
		return nil, fmt.Errorf("creating spanner client: %v", err)
	}
	return client, nil
}

// ReadStatements reads a schema file and splits it into statements.
// This assumes there are no comments and statements are separated by
// semicolons.
func ReadStatements(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema file cannot open: %v", err)
	}

	var statements []string
	for _, s := range strings.Split(string(b), ";") {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			continue
		}
		statements = append(statements, s)
	}
	return statements, nil
}
