package service

import (
	"opcdiary/internal/analyzer"
	"opcdiary/internal/repository"
)

// Options configures New.
type Options struct {
	Directory *Directory
	Analyzer  analyzer.Analyzer
	Diary     DiaryOptions
	Clock     Clock
}

// Services bundles every service over one set of repositories.
type Services struct {
	Users *UserService
	Graph *SocialGraph
	Diary *DiaryService
	Chat  *ChatService
	Forum *ForumService
	Lists *ListService
}

// New wires the services.
func New(repos *repository.Repositories, opts Options) *Services {
	dir := opts.Directory
	if dir == nil {
		dir = NewDirectory()
	}
	diaryOpts := opts.Diary
	if diaryOpts.Clock == nil {
		diaryOpts.Clock = opts.Clock
	}
	graph := NewSocialGraph(repos.Connections, repos.Users, dir)
	return &Services{
		Users: NewUserService(repos.Users, dir),
		Graph: graph,
		Diary: NewDiaryService(repos.Projects, opts.Analyzer, diaryOpts),
		Chat:  NewChatService(repos.Messages, repos.Users, graph, opts.Clock),
		Forum: NewForumService(repos.Forum, opts.Clock),
		Lists: NewListService(repos.Lists),
	}
}
