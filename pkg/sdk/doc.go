// Package ris is a Go client for a retrieval service that offers text,
// image and named-vector search, a multi-turn chat endpoint and an
// analytics summary.
//
// # Search
//
//	client, _ := ris.New(ris.WithBaseURL("http://localhost:8000"))
//	hits, _ := client.Search().Text(ctx, ris.TextSearchRequest{Query: "shoes"})
//	hits, _ = client.Search().Image(ctx, ris.ImageSearchRequest{File: f, TopK: ris.TopK(5)})
//
// Hybrid queries can mix raw vectors with text embedded on the client side
// (requires WithEmbedder):
//
//	hits, _ = client.Search().NewHybrid().
//	    With("image", imageVec).
//	    Embed("text", "red running shoes").
//	    Filter("brand", "acme").
//	    TopK(10).
//	    Do(ctx)
//
// # Chat
//
// A session serializes its turns: a Send issued while another is in flight
// fails with ErrTurnInFlight. The transcript is always the history returned
// by the server.
//
//	s := client.Chat().Session("demo")
//	reply, _ := s.Send(ctx, "hello")
//
// # Errors
//
// Every failure matches exactly one of ErrNetwork, ErrDecode, ErrServer or
// ErrPrecondition via errors.Is. Transport failures can be inspected further
// with errors.As(err, new(*ris.TransportError)).
package ris
