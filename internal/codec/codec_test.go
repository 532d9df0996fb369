package codec

import (
	"testing"

	"opcdiary/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() models.UserProfile {
	return models.UserProfile{
		CompanyName:  "Acme",
		Description:  "Rockets for coyotes",
		DevTime:      "2 Years",
		Audience:     "10K",
		Valuation:    "$5M",
		Avatar:       "data:image/webp;base64,AAAA",
		ProjectURL:   "https://acme.example.com",
		ProjectCover: "data:image/webp;base64,BBBB",
		Password:     "p1",
		Title:        "Founder",
	}
}

func sampleProject() models.Project {
	return models.Project{
		ID:          "0190f5a4-0000-7000-8000-000000000001",
		Name:        "Launch pad",
		Description: "A new journey begins.",
		Stats:       models.ProjectStats{Stage: "Building", TimeSpent: "1y 3d", Cost: "$1,250", Profit: "$12.5"},
		Entries: []models.DiaryEntry{{
			ID:        "e1",
			Content:   "spent $50 on domains",
			Images:    []string{"data:image/webp;base64,CCCC"},
			Timestamp: 1718000000000,
			Date:      "6/10/2024",
			Comments: []models.Comment{
				{ID: "c1", Author: "Zed", Content: "nice", IsOwner: false, Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=Zed"},
				{ID: "c2", Author: "Acme", Content: "thanks", IsOwner: true},
			},
		}},
	}
}

func sampleThread() models.Thread {
	return models.Thread{
		{ID: "m1", Sender: models.SenderUser, Content: "hello", Timestamp: 1718000000000},
		{ID: "m2", Sender: models.SenderSupervisor, Content: "hi", Timestamp: 1718000001000, Read: true},
	}
}

func samplePost() models.ForumPost {
	return models.ForumPost{
		ID:        "f9",
		Author:    models.ForumAuthor{Name: "Acme", Avatar: "a", Title: "Founder"},
		Content:   "We launched",
		Image:     "data:image/webp;base64,DDDD",
		Link:      "https://acme.example.com",
		Category:  models.CategoryLaunch,
		Timestamp: 1718000000000,
		Likes:     3,
		LikedBy:   []string{"Zed", "Bob"},
		Comments:  1,
		CommentsList: []models.ForumComment{
			{ID: "fc1", Author: models.ForumAuthor{Name: "Zed", Avatar: "z"}, Content: "congrats", Timestamp: 1718000002000},
		},
		Tags: []string{"Launch"},
	}
}

func codecs(t *testing.T) []Codec {
	t.Helper()
	cb, err := NewCBOR()
	require.NoError(t, err)
	return []Codec{JSON{}, cb}
}

func TestCodec_RoundTripPreservesEveryField(t *testing.T) {
	for _, c := range codecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			profile := sampleProfile()
			s, err := c.Marshal(profile)
			require.NoError(t, err)
			var gotProfile models.UserProfile
			require.NoError(t, c.Unmarshal(s, &gotProfile))
			assert.Equal(t, profile, gotProfile)

			project := sampleProject()
			s, err = c.Marshal(project)
			require.NoError(t, err)
			var gotProject models.Project
			require.NoError(t, c.Unmarshal(s, &gotProject))
			assert.Equal(t, project, gotProject)

			thread := sampleThread()
			s, err = c.Marshal(thread)
			require.NoError(t, err)
			var gotThread models.Thread
			require.NoError(t, c.Unmarshal(s, &gotThread))
			assert.Equal(t, thread, gotThread)

			post := samplePost()
			s, err = c.Marshal(post)
			require.NoError(t, err)
			var gotPost models.ForumPost
			require.NoError(t, c.Unmarshal(s, &gotPost))
			assert.Equal(t, post, gotPost)
		})
	}
}

func TestJSON_UsesDocumentedFieldNames(t *testing.T) {
	s, err := JSON{}.Marshal(sampleThread()[:1])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"m1","sender":"USER","content":"hello","timestamp":1718000000000}]`, s)

	s, err = JSON{}.Marshal(models.Connections{"Acme": {"Zed"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Acme":["Zed"]}`, s)
}

func TestCBOR_IsDeterministic(t *testing.T) {
	cb, err := NewCBOR()
	require.NoError(t, err)
	graph := models.Connections{"Zed": {"Acme"}, "Acme": {"Zed", "Bob"}, "Bob": {}}

	first, err := cb.Marshal(graph)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := cb.Marshal(graph)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNew(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = New("cbor")
	require.NoError(t, err)
	assert.Equal(t, "cbor", c.Name())

	_, err = New("xml")
	assert.Error(t, err)
}
