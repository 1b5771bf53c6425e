// Package alerts implements the route safety rule engine and webhook
// delivery. Rules are evaluated against a route's state after every rating;
// webhooks are delivered to Teams, Slack, or generic HTTP targets.
package alerts
