// Package ws streams route scores to map UI clients over WebSocket.
//
// New(ratings, interval) creates a Hub.
// Hub.Run(ctx) broadcasts on every tick and whenever Notify is called;
// it blocks until ctx is cancelled, then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection, sends the current scores
// immediately, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "scores",
//	  "data":  { /* same schema as GET /api/get_scores */ }
//	}
//
// Clients may pass ?route=r_green,r_red to receive only those route IDs.
// The endpoint is mounted at /ws/scores by the server.
package ws
