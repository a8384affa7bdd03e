// Package ragdex embeds the ragdex document retrieval core in a Go program.
//
// Documents are chunked, embedded and stored in a local SQLite file; queries
// combine vector similarity with literal term overlap and return citable
// excerpts scoped to one owner.
//
//	client, _ := ragdex.New(ctx,
//	    ragdex.WithDatabase("data/ragdex.db"),
//	    ragdex.WithEmbedder(myEmbedder),
//	    ragdex.WithVectorDimensions(1536),
//	)
//	defer client.Close()
//
//	client.UpsertDocuments(ctx, "user-1", []ragdex.Document{
//	    {ID: "notes", Filename: "notes.md", Content: []byte("...")},
//	})
//	res := client.Query(ctx, "user-1", "what did we decide about caching?")
//	if !res.OK {
//	    // retrieval unavailable, res.Error says why
//	}
//
// Large files can be queued instead and polled:
//
//	jobID, _ := client.Enqueue(ctx, "user-1", ragdex.Document{Filename: "book.pdf", Content: pdf})
//	job, _ := client.Job(jobID)
package ragdex
