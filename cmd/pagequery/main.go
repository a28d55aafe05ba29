// Command pagequery serves paginated, filterable list endpoints over
// PostgreSQL.
//
// Usage:
//
//	# Start the HTTP server
//	pagequery serve --config ./config/config.yaml
//
//	# Create tables and insert the demo data
//	pagequery seed --migrate
//
//	# Check the policy file against the models
//	pagequery check
package main

func main() {
	Execute()
}
