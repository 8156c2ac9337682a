// Package cesclient provides the primary entry point for constructing a
// CES (Course Evaluations & Surveys) API client that implements the
// ces.Client interface.
//
// It validates and normalizes configuration, then wires the HTTP transport,
// authentication, caching and metrics on top of the resource types defined in
// the ces package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/ces-client/pkg/ces"
//	  "github.com/fivetwenty-io/ces-client/pkg/cesclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := cesclient.NewWithToken(ctx, "https://school.evaluationkit.com", "token")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  projects, err := cli.ListProjects(&ces.ProjectListOptions{
//	    ListOptions: ces.ListOptions{Filters: ces.FilterExpression{"title": {"*Fall*"}}},
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  for project, err := range projects.All(ctx) {
//	    if err != nil { log.Fatal(err) }
//	    title, _ := project.Title()
//	    log.Println(title)
//	  }
//	}
//
// Configuration can also come from a YAML file and CES_* environment
// variables:
//
//	cli, err := cesclient.NewFromFile(ctx, "") // $HOME/.ces/config.yml
//
// Only HTTP 429 responses and connection failures are retried. Rate limit
// responses CES sends as 403 "Rate Limit Exceeded" surface immediately as
// ces.ErrRateLimitExceeded.
package cesclient
