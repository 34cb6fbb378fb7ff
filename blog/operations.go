// blog/operations.go
package blog

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 14

// Args holds an operation's validated string arguments.
type Args map[string]string

type argSpec struct {
	name     string
	required bool
}

// operation declares one named query or mutation: its argument shape, whether
// a caller identity is required before anything else runs, the entity type of
// its result (for relation expansion), and the handler itself.
type operation struct {
	name        string
	entity      string
	requireAuth bool
	args        []argSpec
	run         func(d *Dispatcher, ctx context.Context, args Args, ident *Identity) (any, error)
}

// The closed operation set. Identity requirements mirror the policy table:
// register, login, and all reads are anonymous; creates need any identity;
// updates and deletes additionally carry the ownership filter in the handler.
func buildOperations() map[string]*operation {
	ops := []*operation{
		{name: "users", entity: "user", run: (*Dispatcher).opUsers},
		{name: "user", entity: "user", args: []argSpec{{"id", true}}, run: (*Dispatcher).opUser},
		{name: "posts", entity: "post", run: (*Dispatcher).opPosts},
		{name: "post", entity: "post", args: []argSpec{{"id", true}}, run: (*Dispatcher).opPost},
		{name: "comments", entity: "comment", run: (*Dispatcher).opComments},
		{name: "comment", entity: "comment", args: []argSpec{{"id", true}}, run: (*Dispatcher).opComment},
		{
			name: "register",
			args: []argSpec{{"username", true}, {"email", true}, {"password", true}, {"displayName", true}},
			run:  (*Dispatcher).opRegister,
		},
		{
			name: "login",
			args: []argSpec{{"email", true}, {"password", true}},
			run:  (*Dispatcher).opLogin,
		},
		{
			name:        "createPost",
			entity:      "post",
			requireAuth: true,
			args:        []argSpec{{"title", true}, {"body", true}},
			run:         (*Dispatcher).opCreatePost,
		},
		{
			name:        "updatePost",
			entity:      "post",
			requireAuth: true,
			args:        []argSpec{{"id", true}, {"title", true}, {"body", true}},
			run:         (*Dispatcher).opUpdatePost,
		},
		{
			name:        "deletePost",
			requireAuth: true,
			args:        []argSpec{{"postId", true}},
			run:         (*Dispatcher).opDeletePost,
		},
		{
			name:        "addComment",
			entity:      "comment",
			requireAuth: true,
			args:        []argSpec{{"postId", true}, {"body", true}},
			run:         (*Dispatcher).opAddComment,
		},
		{
			name:        "updateComment",
			entity:      "comment",
			requireAuth: true,
			args:        []argSpec{{"id", true}, {"body", true}},
			run:         (*Dispatcher).opUpdateComment,
		},
		{
			name:        "deleteComment",
			requireAuth: true,
			args:        []argSpec{{"id", true}},
			run:         (*Dispatcher).opDeleteComment,
		},
	}
	table := make(map[string]*operation, len(ops))
	for _, op := range ops {
		table[op.name] = op
	}
	return table
}

// --- Queries ---

func (d *Dispatcher) opUsers(ctx context.Context, args Args, ident *Identity) (any, error) {
	docs, err := d.store.FindMany(ctx, colUsers, nil)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		var u User
		if err := decodeDoc(doc, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (d *Dispatcher) opUser(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.FindOne(ctx, colUsers, Filter{"id": args["id"]})
	if err != nil || doc == nil {
		return nil, err
	}
	var u User
	if err := decodeDoc(doc, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *Dispatcher) opPosts(ctx context.Context, args Args, ident *Identity) (any, error) {
	docs, err := d.store.FindMany(ctx, colPosts, nil)
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(docs))
	for _, doc := range docs {
		var p Post
		if err := decodeDoc(doc, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (d *Dispatcher) opPost(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.FindOne(ctx, colPosts, Filter{"id": args["id"]})
	if err != nil || doc == nil {
		return nil, err
	}
	var p Post
	if err := decodeDoc(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *Dispatcher) opComments(ctx context.Context, args Args, ident *Identity) (any, error) {
	docs, err := d.store.FindMany(ctx, colComments, nil)
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

func (d *Dispatcher) opComment(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.FindOne(ctx, colComments, Filter{"id": args["id"]})
	if err != nil || doc == nil {
		return nil, err
	}
	var c Comment
	if err := decodeDoc(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Mutations ---

func (d *Dispatcher) opRegister(ctx context.Context, args Args, ident *Identity) (any, error) {
	if !ValidEmail(args["email"]) {
		return nil, validationErr("provide a valid email")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(args["password"]), bcryptCost)
	if err != nil {
		return nil, err
	}
	doc, err := d.store.Insert(ctx, colUsers, Doc{
		"username":    args["username"],
		"email":       args["email"],
		"displayName": args["displayName"],
		"password":    string(hash),
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, conflictErr("email already in use")
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := decodeDoc(doc, &u); err != nil {
		return nil, err
	}
	return d.codec.Issue(Identity{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName})
}

func (d *Dispatcher) opLogin(ctx context.Context, args Args, ident *Identity) (any, error) {
	// The raw document is the only place the hash is visible; it never makes
	// it onto the User struct.
	doc, err := d.store.FindOne(ctx, colUsers, Filter{"email": args["email"]})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, invalidCredentialsErr()
	}
	hash, _ := doc["password"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(args["password"])) != nil {
		return nil, invalidCredentialsErr()
	}
	var u User
	if err := decodeDoc(doc, &u); err != nil {
		return nil, err
	}
	return d.codec.Issue(Identity{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName})
}

func (d *Dispatcher) opCreatePost(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.Insert(ctx, colPosts, Doc{
		"authorId": ident.ID,
		"title":    args["title"],
		"body":     args["body"],
	})
	if err != nil {
		return nil, err
	}
	var p Post
	if err := decodeDoc(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *Dispatcher) opUpdatePost(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.UpdateOne(ctx, colPosts,
		Filter{"id": args["id"], "authorId": ident.ID},
		Doc{"title": args["title"], "body": args["body"]})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFoundOrForbiddenErr("post")
	}
	var p Post
	if err := decodeDoc(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *Dispatcher) opDeletePost(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.DeleteOne(ctx, colPosts, Filter{"id": args["postId"], "authorId": ident.ID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFoundOrForbiddenErr("post")
	}
	return "post deleted", nil
}

func (d *Dispatcher) opAddComment(ctx context.Context, args Args, ident *Identity) (any, error) {
	// postId passes through untouched; referential integrity is the store's
	// concern, not this layer's.
	doc, err := d.store.Insert(ctx, colComments, Doc{
		"userId": ident.ID,
		"postId": args["postId"],
		"body":   args["body"],
	})
	if err != nil {
		return nil, err
	}
	var c Comment
	if err := decodeDoc(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *Dispatcher) opUpdateComment(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.UpdateOne(ctx, colComments,
		Filter{"id": args["id"], "userId": ident.ID},
		Doc{"body": args["body"]})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFoundOrForbiddenErr("comment")
	}
	var c Comment
	if err := decodeDoc(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *Dispatcher) opDeleteComment(ctx context.Context, args Args, ident *Identity) (any, error) {
	doc, err := d.store.DeleteOne(ctx, colComments, Filter{"id": args["id"], "userId": ident.ID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFoundOrForbiddenErr("comment")
	}
	return "comment deleted", nil
}
