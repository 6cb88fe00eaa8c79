package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/commboard/apperrors"
	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/utils"
)

func TestVoteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	p1 := f.createPost(t, a, "p1")
	if p1.Upvotes != 0 || p1.Downvotes != 0 {
		t.Fatalf("new post counters = (%d,%d), want (0,0)", p1.Upvotes, p1.Downvotes)
	}

	got, err := f.posts.Upvote(ctx, p1.ID, b)
	if err != nil {
		t.Fatalf("Upvote: %v", err)
	}
	if got.Upvotes != 1 || got.Downvotes != 0 {
		t.Fatalf("after upvote counters = (%d,%d), want (1,0)", got.Upvotes, got.Downvotes)
	}
	if bu := f.user(t, b); !sameIDs(bu.LikedPosts, []string{p1.ID}) {
		t.Fatalf("likedPosts = %v, want [%s]", bu.LikedPosts, p1.ID)
	}

	got, err = f.posts.Downvote(ctx, p1.ID, b)
	if err != nil {
		t.Fatalf("Downvote: %v", err)
	}
	if got.Upvotes != 0 || got.Downvotes != 1 {
		t.Fatalf("after downvote counters = (%d,%d), want (0,1)", got.Upvotes, got.Downvotes)
	}
	bu := f.user(t, b)
	if len(bu.LikedPosts) != 0 {
		t.Fatalf("likedPosts = %v, want []", bu.LikedPosts)
	}
	if !sameIDs(bu.DownvotedPosts, []string{p1.ID}) {
		t.Fatalf("downvotedPosts = %v, want [%s]", bu.DownvotedPosts, p1.ID)
	}
}

func TestUpvoteTwiceRestoresCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	p := f.createPost(t, a, "p")

	if _, err := f.posts.Upvote(ctx, p.ID, a); err != nil {
		t.Fatalf("first Upvote: %v", err)
	}
	got, err := f.posts.Upvote(ctx, p.ID, a)
	if err != nil {
		t.Fatalf("second Upvote: %v", err)
	}
	if got.Upvotes != 0 {
		t.Fatalf("upvotes = %d, want 0", got.Upvotes)
	}
	if u := f.user(t, a); utils.ContainsID(u.LikedPosts, p.ID) {
		t.Fatalf("likedPosts still holds %s", p.ID)
	}
}

func TestVoteReturnsMaterializedComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	p := f.createPost(t, a, "p")

	got, err := f.posts.Upvote(ctx, p.ID, a)
	if err != nil {
		t.Fatalf("Upvote: %v", err)
	}
	if got.Comments == nil {
		t.Fatal("comments should be an empty slice, not nil")
	}

	if _, err := f.posts.AddComment(ctx, p.ID, a, "first"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	got, err = f.posts.Downvote(ctx, p.ID, a)
	if err != nil {
		t.Fatalf("Downvote: %v", err)
	}
	if len(got.Comments) != 1 || got.Comments[0].Content != "first" {
		t.Fatalf("comments = %+v, want one comment", got.Comments)
	}
}

func TestVoteMissingRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	p := f.createPost(t, a, "p")

	_, err := f.posts.Upvote(ctx, "missing", a)
	if !errors.Is(err, apperrors.ErrNotFound) || !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatalf("missing post: got %v, want post not found", err)
	}

	_, err = f.posts.Downvote(ctx, p.ID, "ghost")
	if !errors.Is(err, apperrors.ErrNotFound) || !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("missing user: got %v, want user not found", err)
	}
	if errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatal("missing user must be distinguishable from missing post")
	}

	got, err := f.store.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Upvotes != 0 || got.Downvotes != 0 {
		t.Fatalf("failed vote changed counters to (%d,%d)", got.Upvotes, got.Downvotes)
	}
}

func TestVoteRejectsUnknownDirection(t *testing.T) {
	f := newFixture(t)
	_, err := f.posts.Vote(context.Background(), "p", "u", VoteDirection("sideways"))
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
}

// The projection carries the AUTHOR's vote sets, not the viewer's. A viewer
// who voted is visible only through their own user record.
func TestProjectionUsesAuthorVoteSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	pa := f.createPost(t, a, "by alice")
	pb := f.createPost(t, b, "by bob")

	if _, err := f.posts.Upvote(ctx, pa.ID, b); err != nil {
		t.Fatalf("Upvote: %v", err)
	}
	if _, err := f.posts.Downvote(ctx, pb.ID, a); err != nil {
		t.Fatalf("Downvote: %v", err)
	}

	view, err := f.posts.GetPost(ctx, pa.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if utils.ContainsID(view.LikedPosts, pa.ID) {
		t.Fatal("viewer B's upvote leaked into the author-joined projection")
	}
	if !sameIDs(view.DownvotedPosts, []string{pb.ID}) {
		t.Fatalf("downvotedPosts = %v, want author A's set [%s]", view.DownvotedPosts, pb.ID)
	}
	if view.Upvotes != 1 {
		t.Fatalf("upvotes = %d, want 1", view.Upvotes)
	}
}

func TestVoteSetsMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	posts := []*models.Post{f.createPost(t, a, "one"), f.createPost(t, a, "two"), f.createPost(t, a, "three")}

	seq := []VoteDirection{VoteUp, VoteDown, VoteUp, VoteUp, VoteDown, VoteDown, VoteUp}
	for i, dir := range seq {
		p := posts[i%len(posts)]
		if _, err := f.posts.Vote(ctx, p.ID, a, dir); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		for _, p := range posts {
			view, err := f.posts.GetPost(ctx, p.ID)
			if err != nil {
				t.Fatalf("GetPost: %v", err)
			}
			if utils.ContainsID(view.LikedPosts, p.ID) && utils.ContainsID(view.DownvotedPosts, p.ID) {
				t.Fatalf("after vote %d, %s is in both sets", i, p.ID)
			}
		}
	}
}

func TestConcurrentVotesKeepCountersInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "Author", "author@x.com")
	p := f.createPost(t, author, "hot")

	const voters = 12
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = f.register(t, fmt.Sprintf("voter%d", i), fmt.Sprintf("v%d@x.com", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters*3)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			// Every voter double-clicks; odd voters then switch to a downvote.
			seq := []VoteDirection{VoteUp, VoteUp, VoteUp}
			if i%2 == 1 {
				seq[2] = VoteDown
			}
			for _, dir := range seq {
				if _, err := f.posts.Vote(ctx, p.ID, id, dir); err != nil {
					errs <- err
				}
			}
		}(i, id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent vote: %v", err)
	}

	got, err := f.store.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	var liked, downvoted int
	for _, id := range ids {
		u := f.user(t, id)
		if utils.ContainsID(u.LikedPosts, p.ID) {
			liked++
		}
		if utils.ContainsID(u.DownvotedPosts, p.ID) {
			downvoted++
		}
	}
	if got.Upvotes != liked || got.Downvotes != downvoted {
		t.Fatalf("counters (%d,%d) drifted from sets (%d,%d)", got.Upvotes, got.Downvotes, liked, downvoted)
	}
	if liked != voters/2 || downvoted != voters/2 {
		t.Fatalf("sets (%d,%d), want (%d,%d)", liked, downvoted, voters/2, voters/2)
	}
	if n := f.deps.Locks.Len(); n != 0 {
		t.Fatalf("%d keys still locked", n)
	}
}

func TestCommentsAppendInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	p := f.createPost(t, a, "p")

	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.posts.now = func() time.Time { return fixed }

	c1, err := f.posts.AddComment(ctx, p.ID, b, "  first  ")
	if err != nil {
		t.Fatalf("AddComment C1: %v", err)
	}
	c2, err := f.posts.AddComment(ctx, p.ID, a, "second")
	if err != nil {
		t.Fatalf("AddComment C2: %v", err)
	}
	if c1.AuthorName != "Bob" || c1.Content != "first" || !c1.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected comment %+v", c1)
	}
	if c1.ID == "" || c1.ID == c2.ID {
		t.Fatalf("comment ids must be fresh, got %q and %q", c1.ID, c2.ID)
	}

	view, err := f.posts.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if len(view.Comments) != 2 || view.Comments[0].ID != c1.ID || view.Comments[1].ID != c2.ID {
		t.Fatalf("comments = %+v, want [C1 C2]", view.Comments)
	}
}

func TestCommentAuthorNameIsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	p := f.createPost(t, a, "p")

	if _, err := f.posts.AddComment(ctx, p.ID, a, "hello"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	renamed := "Alicia"
	if _, err := f.users.UpdateProfile(ctx, a, ProfileUpdate{Name: &renamed}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	view, err := f.posts.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if view.Comments[0].AuthorName != "Alice" {
		t.Fatalf("authorName = %q, want the name at comment time", view.Comments[0].AuthorName)
	}
}

func TestAddCommentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	p := f.createPost(t, a, "p")

	tests := []struct {
		name    string
		postID  string
		userID  string
		content string
		want    error
	}{
		{"empty content", p.ID, a, "   ", apperrors.ErrValidation},
		{"markup only", p.ID, a, "<script>alert(1)</script>", apperrors.ErrValidation},
		{"missing post", "missing", a, "hi", apperrors.ErrPostNotFound},
		{"missing user", p.ID, "ghost", "hi", apperrors.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.AddComment(ctx, tt.postID, tt.userID, tt.content)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	p, err := f.posts.CreatePost(ctx, a, PostInput{Title: "Broken lift", Content: "Floor 3", Type: models.PostTypeIssue, Upload: upload("cat.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.ID == "" || p.AuthorID != a || p.Image != "/uploads/1-cat.png" || p.Comments == nil {
		t.Fatalf("unexpected post %+v", p)
	}
	second := f.createPost(t, a, "second")

	if u := f.user(t, a); !sameIDs(u.Posts, []string{p.ID, second.ID}) {
		t.Fatalf("author posts = %v, want creation order", u.Posts)
	}
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	tests := []struct {
		name string
		in   PostInput
		want error
	}{
		{"missing title", PostInput{Content: "c", Type: models.PostTypeIssue}, apperrors.ErrValidation},
		{"missing content", PostInput{Title: "t", Type: models.PostTypeIssue}, apperrors.ErrValidation},
		{"missing type", PostInput{Title: "t", Content: "c"}, apperrors.ErrValidation},
		{"unknown type", PostInput{Title: "t", Content: "c", Type: "Rumour"}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.posts.CreatePost(ctx, a, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	_, err := f.posts.CreatePost(ctx, "ghost", PostInput{Title: "t", Content: "c", Type: models.PostTypeProgress})
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("missing author: got %v", err)
	}
	posts, err := f.posts.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("failed creates left %d posts behind", len(posts))
	}
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")

	p, err := f.posts.CreatePost(ctx, a, PostInput{Title: "t", Content: "c", Type: models.PostTypeIssue, Upload: upload("old.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	oldImg := p.Image
	if _, err := f.posts.Upvote(ctx, p.ID, b); err != nil {
		t.Fatalf("Upvote: %v", err)
	}

	in := PostInput{Title: "t2", Content: "c2", Type: models.PostTypeProgress}
	if _, err := f.posts.UpdatePost(ctx, p.ID, b, in); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("non-author update: got %v, want forbidden", err)
	}
	if _, err := f.posts.UpdatePost(ctx, "missing", a, in); !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatalf("missing post: got %v", err)
	}

	got, err := f.posts.UpdatePost(ctx, p.ID, a, in)
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if got.Title != "t2" || got.Type != models.PostTypeProgress || got.Image != oldImg {
		t.Fatalf("unexpected post after update %+v", got)
	}
	if got.Upvotes != 1 {
		t.Fatalf("update reset upvotes to %d", got.Upvotes)
	}

	in.Upload = upload("new.png")
	got, err = f.posts.UpdatePost(ctx, p.ID, a, in)
	if err != nil {
		t.Fatalf("UpdatePost with image: %v", err)
	}
	if got.Image == oldImg || got.Image == "" {
		t.Fatalf("image not replaced: %q", got.Image)
	}
	if url := f.files.waitDeleted(t); url != oldImg {
		t.Fatalf("deleted %q, want %q", url, oldImg)
	}

	newImg := got.Image
	got, err = f.posts.UpdatePost(ctx, p.ID, a, PostInput{Title: "t3", Content: "c3", Type: models.PostTypeIssue, RemoveImage: true})
	if err != nil {
		t.Fatalf("UpdatePost remove image: %v", err)
	}
	if got.Image != "" {
		t.Fatalf("image = %q, want cleared", got.Image)
	}
	if url := f.files.waitDeleted(t); url != newImg {
		t.Fatalf("deleted %q, want %q", url, newImg)
	}
}

func TestUpdatePostChecksAuthorBeforeFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	p := f.createPost(t, a, "mine")

	empty := PostInput{Upload: upload("x.png")}
	if _, err := f.posts.UpdatePost(ctx, p.ID, b, empty); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("non-author with empty fields: got %v, want forbidden", err)
	}
	if _, err := f.posts.UpdatePost(ctx, "missing", b, empty); !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatalf("missing post with empty fields: got %v, want not found", err)
	}
	if _, err := f.posts.UpdatePost(ctx, p.ID, a, empty); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("author with empty fields: got %v, want validation", err)
	}
	if f.files.saved != 0 {
		t.Fatalf("rejected updates stored %d uploads", f.files.saved)
	}
}

func TestDeleteNeverTouchesAnotherPostsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")

	alices, err := f.posts.CreatePost(ctx, a, PostInput{Title: "t", Content: "c", Type: models.PostTypeIssue, Upload: upload("alice.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	bobs, err := f.posts.CreatePost(ctx, b, PostInput{Title: "t", Content: "c", Type: models.PostTypeIssue, Upload: upload("alice.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if bobs.Image == alices.Image {
		t.Fatalf("two uploads share %q", bobs.Image)
	}

	if err := f.posts.DeletePost(ctx, bobs.ID, b); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if url := f.files.waitDeleted(t); url != bobs.Image {
		t.Fatalf("deleted %q, want bob's %q", url, bobs.Image)
	}
	for _, url := range f.files.removedURLs() {
		if url == alices.Image {
			t.Fatalf("alice's image %q deleted by bob", url)
		}
	}
}

func TestUploadFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	in := PostInput{Title: "t", Content: "c", Type: models.PostTypeIssue, Upload: upload("big.png")}
	f.files.saveErr = utils.ErrFileTooLarge
	if _, err := f.posts.CreatePost(ctx, a, in); !errors.Is(err, apperrors.ErrTooLarge) {
		t.Fatalf("too large: got %v", err)
	}
	f.files.saveErr = errors.New("disk full")
	if _, err := f.posts.CreatePost(ctx, a, in); !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("save failure: got %v", err)
	}
	f.files.saveErr = nil

	// A stored upload whose post cannot be created is discarded.
	if _, err := f.posts.CreatePost(ctx, "ghost", in); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("missing author: got %v", err)
	}
	if url := f.files.waitDeleted(t); url != "/uploads/1-big.png" {
		t.Fatalf("discarded %q", url)
	}
}

func TestDeletePostCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	keep := f.createPost(t, a, "keep")
	p, err := f.posts.CreatePost(ctx, a, PostInput{Title: "t", Content: "c", Type: models.PostTypeAnnouncement, Upload: upload("pic.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	img := p.Image
	if _, err := f.posts.AddComment(ctx, p.ID, a, "bye"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := f.posts.DeletePost(ctx, p.ID, a); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if u := f.user(t, a); !sameIDs(u.Posts, []string{keep.ID}) {
		t.Fatalf("author posts = %v, want [%s]", u.Posts, keep.ID)
	}
	if _, err := f.posts.GetPost(ctx, p.ID); !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatalf("GetPost after delete: got %v, want not found", err)
	}
	if url := f.files.waitDeleted(t); url != img {
		t.Fatalf("deleted %q, want %q", url, img)
	}
	if err := f.posts.DeletePost(ctx, p.ID, a); !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Fatalf("second delete: got %v, want not found", err)
	}
}

func TestDeletePostImageFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.files.err = errors.New("permission denied")
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	p, err := f.posts.CreatePost(ctx, a, PostInput{Title: "t", Content: "c", Type: models.PostTypeIssue, Upload: upload("locked.png")})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := f.posts.DeletePost(ctx, p.ID, a); err != nil {
		t.Fatalf("DeletePost must not fail on image errors: %v", err)
	}
	f.files.waitDeleted(t)
}

func TestDeletePostForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	p := f.createPost(t, a, "mine")

	err := f.posts.DeletePost(ctx, p.ID, b)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
	if _, err := f.posts.GetPost(ctx, p.ID); err != nil {
		t.Fatalf("post should survive, got %v", err)
	}
	if u := f.user(t, a); !sameIDs(u.Posts, []string{p.ID}) {
		t.Fatalf("author posts = %v, want [%s]", u.Posts, p.ID)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		f.posts.now = func() time.Time { return at }
		ids = append(ids, f.createPost(t, a, fmt.Sprintf("post %d", i)).ID)
	}

	views, err := f.posts.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	want := []string{ids[2], ids[1], ids[0]}
	for i, v := range views {
		if v.ID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, v.ID, want[i])
		}
		if v.LikedPosts == nil || v.DownvotedPosts == nil || v.Comments == nil {
			t.Fatalf("projection %d has nil collections", i)
		}
	}
}

func TestCachedProjectionsInvalidatedByVotes(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	f := newFixtureWithCache(t, utils.NewCache(rc))
	ctx := context.Background()

	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	pa := f.createPost(t, a, "by alice")
	pb := f.createPost(t, b, "by bob")

	// Warm the cache.
	if _, err := f.posts.ListPosts(ctx); err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if _, err := f.posts.GetPost(ctx, pb.ID); err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !mr.Exists(cacheKeyPostList) || !mr.Exists(cacheKeyPostDetail+pb.ID) {
		t.Fatal("expected list and detail to be cached")
	}

	// Bob votes on Alice's post; Bob's own post carries his sets and must refresh.
	if _, err := f.posts.Upvote(ctx, pa.ID, b); err != nil {
		t.Fatalf("Upvote: %v", err)
	}
	view, err := f.posts.GetPost(ctx, pb.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !sameIDs(view.LikedPosts, []string{pa.ID}) {
		t.Fatalf("stale projection: likedPosts = %v", view.LikedPosts)
	}

	views, err := f.posts.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	for _, v := range views {
		if v.ID == pa.ID && v.Upvotes != 1 {
			t.Fatalf("stale list: upvotes = %d", v.Upvotes)
		}
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Alice", "a@x.com")
	b := f.register(t, "Bob", "b@x.com")
	p := f.createPost(t, a, "p")
	if _, err := f.posts.Upvote(ctx, p.ID, b); err != nil {
		t.Fatalf("Upvote: %v", err)
	}
	if _, err := f.posts.AddComment(ctx, p.ID, b, "nice"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	st, err := f.posts.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.UserCount != 2 || st.PostCount != 1 || st.CommentCount != 1 || st.UpvoteTotal != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}
