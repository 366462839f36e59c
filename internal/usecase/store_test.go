package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/totegamma/community/internal/domain"
)

type likeKey struct {
	viewer int64
	post   int64
}

type memState struct {
	nextID      int64
	authors     map[int64]domain.Author
	posts       map[int64]domain.Post
	comments    map[int64]domain.Comment
	likes       map[likeKey]bool
	attachments map[int64]domain.Attachment
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:      s.nextID,
		authors:     make(map[int64]domain.Author, len(s.authors)),
		posts:       make(map[int64]domain.Post, len(s.posts)),
		comments:    make(map[int64]domain.Comment, len(s.comments)),
		likes:       make(map[likeKey]bool, len(s.likes)),
		attachments: make(map[int64]domain.Attachment, len(s.attachments)),
	}
	for k, v := range s.authors {
		c.authors[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.likes {
		c.likes[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	return c
}

// memStore is an in-memory Store that counts every repository call.
type memStore struct {
	state *memState
	calls map[string]int
	fail  map[string]error
	now   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			authors:     map[int64]domain.Author{},
			posts:       map[int64]domain.Post{},
			comments:    map[int64]domain.Comment{},
			likes:       map[likeKey]bool{},
			attachments: map[int64]domain.Attachment{},
		},
		calls: map[string]int{},
		fail:  map[string]error{},
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) call(name string) error {
	s.calls[name]++
	return s.fail[name]
}

func (s *memStore) id() int64 {
	s.state.nextID++
	return s.state.nextID
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *memStore) Authors() AuthorRepository         { return memAuthors{s} }
func (s *memStore) Posts() PostRepository             { return memPosts{s} }
func (s *memStore) Comments() CommentRepository       { return memComments{s} }
func (s *memStore) Likes() LikeRepository             { return memLikes{s} }
func (s *memStore) Attachments() AttachmentRepository { return memAttachments{s} }

func (s *memStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	s.calls["Atomic"]++
	snapshot := s.state.clone()
	if err := fn(s); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type memAuthors struct{ s *memStore }

func (r memAuthors) FindMember(ctx context.Context, accountID int64) (domain.Author, error) {
	if err := r.s.call("Authors.FindMember"); err != nil {
		return domain.Author{}, err
	}
	for _, a := range r.s.state.authors {
		if m, ok := a.Identity.(domain.Member); ok && m.AccountID == accountID {
			return a, nil
		}
	}
	return domain.Author{}, domain.NotFoundError{Resource: "author"}
}

func (r memAuthors) CreateMember(ctx context.Context, accountID int64, displayName string) (domain.Author, error) {
	if err := r.s.call("Authors.CreateMember"); err != nil {
		return domain.Author{}, err
	}
	for _, a := range r.s.state.authors {
		if m, ok := a.Identity.(domain.Member); ok && m.AccountID == accountID {
			return domain.Author{}, domain.ConflictError{Resource: "author"}
		}
	}
	a := domain.Author{ID: r.s.id(), Identity: domain.Member{AccountID: accountID, DisplayName: displayName}}
	r.s.state.authors[a.ID] = a
	return a, nil
}

func (r memAuthors) CreateAnonymous(ctx context.Context, identity domain.Anonymous) (domain.Author, error) {
	if err := r.s.call("Authors.CreateAnonymous"); err != nil {
		return domain.Author{}, err
	}
	a := domain.Author{ID: r.s.id(), Identity: identity}
	r.s.state.authors[a.ID] = a
	return a, nil
}

func (r memAuthors) Get(ctx context.Context, id int64) (domain.Author, error) {
	if err := r.s.call("Authors.Get"); err != nil {
		return domain.Author{}, err
	}
	a, ok := r.s.state.authors[id]
	if !ok {
		return domain.Author{}, domain.NotFoundError{Resource: "author"}
	}
	return a, nil
}

func (r memAuthors) Delete(ctx context.Context, id int64) error {
	if err := r.s.call("Authors.Delete"); err != nil {
		return err
	}
	delete(r.s.state.authors, id)
	return nil
}

type memPosts struct{ s *memStore }

func (r memPosts) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	if err := r.s.call("Posts.Create"); err != nil {
		return domain.Post{}, err
	}
	post.ID = r.s.id()
	post.CreatedAt = r.s.tick()
	post.UpdatedAt = post.CreatedAt
	r.s.state.posts[post.ID] = post
	return post, nil
}

func (r memPosts) Get(ctx context.Context, id int64) (domain.Post, error) {
	if err := r.s.call("Posts.Get"); err != nil {
		return domain.Post{}, err
	}
	p, ok := r.s.state.posts[id]
	if !ok {
		return domain.Post{}, domain.NotFoundError{Resource: "post"}
	}
	return p, nil
}

func (r memPosts) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	if err := r.s.call("Posts.Update"); err != nil {
		return domain.Post{}, err
	}
	post.UpdatedAt = r.s.tick()
	r.s.state.posts[post.ID] = post
	return post, nil
}

func (r memPosts) Delete(ctx context.Context, id int64) error {
	if err := r.s.call("Posts.Delete"); err != nil {
		return err
	}
	delete(r.s.state.posts, id)
	return nil
}

func (r memPosts) IncrementViews(ctx context.Context, id int64) error {
	if err := r.s.call("Posts.IncrementViews"); err != nil {
		return err
	}
	p, ok := r.s.state.posts[id]
	if !ok {
		return domain.NotFoundError{Resource: "post"}
	}
	p.Views++
	r.s.state.posts[id] = p
	return nil
}

func (r memPosts) AdjustLikes(ctx context.Context, id int64, delta int64) error {
	if err := r.s.call("Posts.AdjustLikes"); err != nil {
		return err
	}
	p, ok := r.s.state.posts[id]
	if !ok {
		return domain.NotFoundError{Resource: "post"}
	}
	p.Likes += delta
	r.s.state.posts[id] = p
	return nil
}

func (r memPosts) list(filter func(domain.Post) bool, less func(a, b domain.Post) bool, req domain.PageRequest) domain.Page[domain.PostSummary] {
	var matched []domain.Post
	for _, p := range r.s.state.posts {
		if filter(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if less != nil && less(matched[i], matched[j]) != less(matched[j], matched[i]) {
			return less(matched[i], matched[j])
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	var content []domain.PostSummary
	for i := req.Offset(); i < len(matched) && i < req.Offset()+req.Size; i++ {
		p := matched[i]
		content = append(content, domain.PostSummary{
			ID:        p.ID,
			Title:     p.Title,
			Category:  p.Category,
			Tags:      p.Tags,
			Author:    p.Author,
			Views:     p.Views,
			Likes:     p.Likes,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return domain.NewPage(content, req, int64(len(matched)))
}

func inCategory(category domain.Category) func(domain.Post) bool {
	return func(p domain.Post) bool { return category == "" || p.Category == category }
}

func (r memPosts) ListByTag(ctx context.Context, tag string, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListByTag"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(func(p domain.Post) bool {
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}, nil, req), nil
}

func (r memPosts) Search(ctx context.Context, keyword string, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.Search"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	keyword = strings.ToLower(keyword)
	return r.list(func(p domain.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), keyword) || strings.Contains(strings.ToLower(p.Content), keyword)
	}, nil, req), nil
}

func (r memPosts) ListPopularByViews(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListPopularByViews"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(inCategory(category), func(a, b domain.Post) bool { return a.Views > b.Views }, req), nil
}

func (r memPosts) ListPopularByLikes(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListPopularByLikes"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(inCategory(category), func(a, b domain.Post) bool { return a.Likes > b.Likes }, req), nil
}

func (r memPosts) ListRecent(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListRecent"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(inCategory(category), nil, req), nil
}

func (r memPosts) ListLikedBy(ctx context.Context, viewerID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListLikedBy"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(func(p domain.Post) bool {
		return r.s.state.likes[likeKey{viewerID, p.ID}]
	}, nil, req), nil
}

func (r memPosts) ListByMember(ctx context.Context, accountID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	if err := r.s.call("Posts.ListByMember"); err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	return r.list(func(p domain.Post) bool {
		m, ok := p.Author.Identity.(domain.Member)
		return ok && m.AccountID == accountID
	}, nil, req), nil
}

func (r memPosts) AllTags(ctx context.Context) ([]string, error) {
	if err := r.s.call("Posts.AllTags"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var tags []string
	for _, p := range r.s.state.posts {
		for _, t := range p.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

type memComments struct{ s *memStore }

func (r memComments) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if err := r.s.call("Comments.Create"); err != nil {
		return domain.Comment{}, err
	}
	comment.ID = r.s.id()
	comment.CreatedAt = r.s.tick()
	comment.UpdatedAt = comment.CreatedAt
	r.s.state.comments[comment.ID] = comment
	return comment, nil
}

func (r memComments) Get(ctx context.Context, id int64) (domain.Comment, error) {
	if err := r.s.call("Comments.Get"); err != nil {
		return domain.Comment{}, err
	}
	c, ok := r.s.state.comments[id]
	if !ok {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	return c, nil
}

func (r memComments) UpdateContent(ctx context.Context, id int64, content string) (domain.Comment, error) {
	if err := r.s.call("Comments.UpdateContent"); err != nil {
		return domain.Comment{}, err
	}
	c, ok := r.s.state.comments[id]
	if !ok {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	c.Content = content
	c.UpdatedAt = r.s.tick()
	r.s.state.comments[id] = c
	return c, nil
}

func (r memComments) Delete(ctx context.Context, id int64) error {
	if err := r.s.call("Comments.Delete"); err != nil {
		return err
	}
	delete(r.s.state.comments, id)
	return nil
}

func (r memComments) sorted(filter func(domain.Comment) bool) []domain.Comment {
	var out []domain.Comment
	for _, c := range r.s.state.comments {
		if filter(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r memComments) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if err := r.s.call("Comments.ListByPost"); err != nil {
		return nil, err
	}
	return r.sorted(func(c domain.Comment) bool { return c.PostID == postID }), nil
}

func (r memComments) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error) {
	if err := r.s.call("Comments.ListByAuthor"); err != nil {
		return nil, err
	}
	return r.sorted(func(c domain.Comment) bool { return c.Author.ID == authorID }), nil
}

type memLikes struct{ s *memStore }

func (r memLikes) Add(ctx context.Context, viewerID, postID int64) error {
	if err := r.s.call("Likes.Add"); err != nil {
		return err
	}
	key := likeKey{viewerID, postID}
	if r.s.state.likes[key] {
		return domain.ConflictError{Resource: "like"}
	}
	r.s.state.likes[key] = true
	return nil
}

func (r memLikes) Remove(ctx context.Context, viewerID, postID int64) (bool, error) {
	if err := r.s.call("Likes.Remove"); err != nil {
		return false, err
	}
	key := likeKey{viewerID, postID}
	if !r.s.state.likes[key] {
		return false, nil
	}
	delete(r.s.state.likes, key)
	return true, nil
}

func (r memLikes) LikedPostIDs(ctx context.Context, viewerID int64, postIDs []int64) ([]int64, error) {
	if err := r.s.call("Likes.LikedPostIDs"); err != nil {
		return nil, err
	}
	var out []int64
	for _, id := range postIDs {
		if r.s.state.likes[likeKey{viewerID, id}] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memLikes) DeleteByPost(ctx context.Context, postID int64) error {
	if err := r.s.call("Likes.DeleteByPost"); err != nil {
		return err
	}
	for k := range r.s.state.likes {
		if k.post == postID {
			delete(r.s.state.likes, k)
		}
	}
	return nil
}

type memAttachments struct{ s *memStore }

func (r memAttachments) Create(ctx context.Context, attachment domain.Attachment) (domain.Attachment, error) {
	if err := r.s.call("Attachments.Create"); err != nil {
		return domain.Attachment{}, err
	}
	attachment.ID = r.s.id()
	attachment.CreatedAt = r.s.tick()
	r.s.state.attachments[attachment.ID] = attachment
	return attachment, nil
}

func (r memAttachments) Get(ctx context.Context, id int64) (domain.Attachment, error) {
	if err := r.s.call("Attachments.Get"); err != nil {
		return domain.Attachment{}, err
	}
	a, ok := r.s.state.attachments[id]
	if !ok {
		return domain.Attachment{}, domain.NotFoundError{Resource: "attachment"}
	}
	return a, nil
}

func (r memAttachments) ListByPost(ctx context.Context, postID int64) ([]domain.Attachment, error) {
	if err := r.s.call("Attachments.ListByPost"); err != nil {
		return nil, err
	}
	var out []domain.Attachment
	for _, a := range r.s.state.attachments {
		if a.PostID == postID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAttachments) Delete(ctx context.Context, id int64) error {
	if err := r.s.call("Attachments.Delete"); err != nil {
		return err
	}
	delete(r.s.state.attachments, id)
	return nil
}

func (r memAttachments) DeleteByPost(ctx context.Context, postID int64) error {
	if err := r.s.call("Attachments.DeleteByPost"); err != nil {
		return err
	}
	for id, a := range r.s.state.attachments {
		if a.PostID == postID {
			delete(r.s.state.attachments, id)
		}
	}
	return nil
}

// plainHasher prefixes secrets so tests can tell hashed from plaintext values.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }
func (plainHasher) Verify(plaintext, digest string) bool  { return digest == "hashed:"+plaintext }

type memStorage struct {
	stored  map[string][]byte
	deleted []string
	fail    error
}

func newMemStorage() *memStorage {
	return &memStorage{stored: map[string][]byte{}}
}

func (m *memStorage) Store(ctx context.Context, r io.Reader, meta FileMeta) (StoredFile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return StoredFile{}, err
	}
	url := "/uploads/" + meta.OriginalName
	m.stored[url] = b
	return StoredFile{StoredName: meta.OriginalName, URL: url}, nil
}

func (m *memStorage) Delete(ctx context.Context, url string) error {
	if m.fail != nil {
		return m.fail
	}
	m.deleted = append(m.deleted, url)
	delete(m.stored, url)
	return nil
}

func int64p(v int64) *int64 { return &v }
