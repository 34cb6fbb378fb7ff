// blog/resolvers.go
package blog

import "context"

// ResolveFunc expands one relation field of a parent document with a single
// foreign-key lookup. Resolvers never mutate state and are safe to call zero
// or many times per response; a missing related record resolves to nil or an
// empty slice, never a failure.
type ResolveFunc func(ctx context.Context, store Store, parent Doc) (any, error)

// relations is the static resolver table, keyed by entity type then field
// name. Nothing in here runs unless the caller's selection asks for it.
var relations = map[string]map[string]ResolveFunc{
	"post": {
		"author":   resolvePostAuthor,
		"comments": resolvePostComments,
	},
	"comment": {
		"user": resolveCommentUser,
		"post": resolveCommentPost,
	},
}

func resolvePostAuthor(ctx context.Context, store Store, parent Doc) (any, error) {
	id, _ := parent["authorId"].(string)
	if id == "" {
		return nil, nil
	}
	doc, err := store.FindOne(ctx, colUsers, Filter{"id": id})
	if err != nil || doc == nil {
		return nil, err
	}
	var u User
	if err := decodeDoc(doc, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func resolvePostComments(ctx context.Context, store Store, parent Doc) (any, error) {
	id, _ := parent["id"].(string)
	if id == "" {
		return []Comment{}, nil
	}
	docs, err := store.FindMany(ctx, colComments, Filter{"postId": id})
	if err != nil {
		return nil, err
	}
	comments := make([]Comment, 0, len(docs))
	for _, doc := range docs {
		var c Comment
		if err := decodeDoc(doc, &c); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, nil
}

func resolveCommentUser(ctx context.Context, store Store, parent Doc) (any, error) {
	id, _ := parent["userId"].(string)
	if id == "" {
		return nil, nil
	}
	doc, err := store.FindOne(ctx, colUsers, Filter{"id": id})
	if err != nil || doc == nil {
		return nil, err
	}
	var u User
	if err := decodeDoc(doc, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func resolveCommentPost(ctx context.Context, store Store, parent Doc) (any, error) {
	id, _ := parent["postId"].(string)
	if id == "" {
		return nil, nil
	}
	doc, err := store.FindOne(ctx, colPosts, Filter{"id": id})
	if err != nil || doc == nil {
		return nil, err
	}
	var p Post
	if err := decodeDoc(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
