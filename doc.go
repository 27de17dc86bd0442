// Package pageindex answers research questions over an indexed podcast
// corpus without embeddings.
//
// An Engine plans a query into sub-questions, lets a reasoning model walk the
// index (themes, then episodes, then topics) for each one, writes an answer
// from the retrieved quotes and checks every quotation against its source.
// Results are cached by normalized query and queries are recorded per
// session.
//
//	store, err := index.LoadDir("./index")
//	if err != nil { ... }
//	engine, err := pageindex.NewEngine(store,
//		pageindex.WithAIConfig(ai.NewConfig(ai.WithModel("qwen2.5:7b"))),
//		pageindex.WithDatabase("./pageindex.db"))
//	if err != nil { ... }
//	defer engine.Close()
//
//	out, err := engine.Research(ctx, pageindex.Request{Query: "How do I know I have PMF?"})
//	if core.IsCode(err, core.CodeRetrievalFailed) {
//		// nothing relevant in the corpus
//	}
package pageindex
