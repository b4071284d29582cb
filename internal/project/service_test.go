package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	projectDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/project"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestProject(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Project Module Suite")
}

type memberKey struct {
	projectID int64
	userID    int64
}

// Mock RepositoryAPI backed by maps
type mockRepository struct {
	projects    map[int64]*projectDatamodel.Project
	members     map[memberKey]bool
	invitations map[string]*projectDatamodel.Invitation

	nextProjectID int64
	nextInviteID  int64
	deletedIDs    []int64

	createInviteErr error
	acceptFail      bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		projects:      make(map[int64]*projectDatamodel.Project),
		members:       make(map[memberKey]bool),
		invitations:   make(map[string]*projectDatamodel.Invitation),
		nextProjectID: 1,
		nextInviteID:  1,
	}
}

func (m *mockRepository) CreateProject(_ context.Context, p *projectDatamodel.Project) error {
	p.ID = m.nextProjectID
	m.nextProjectID++
	m.projects[p.ID] = p
	m.members[memberKey{p.ID, p.OwnerID}] = true
	return nil
}

func (m *mockRepository) GetProjectByID(_ context.Context, id int64) (*projectDatamodel.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepository) GetProjectsForUser(_ context.Context, userID int64) ([]*projectDatamodel.Project, error) {
	var out []*projectDatamodel.Project
	for _, p := range m.projects {
		if m.members[memberKey{p.ID, userID}] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) UpdateProject(_ context.Context, p *projectDatamodel.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *mockRepository) DeleteProject(_ context.Context, id int64) error {
	delete(m.projects, id)
	return nil
}

func (m *mockRepository) IsMember(_ context.Context, projectID, userID int64) (bool, error) {
	return m.members[memberKey{projectID, userID}], nil
}

func (m *mockRepository) ListMembers(_ context.Context, _ int64) ([]MemberInfo, error) {
	return nil, nil
}

func (m *mockRepository) AddMember(_ context.Context, projectID, userID int64) error {
	m.members[memberKey{projectID, userID}] = true
	return nil
}

func (m *mockRepository) RemoveMember(_ context.Context, projectID, userID int64) error {
	delete(m.members, memberKey{projectID, userID})
	return nil
}

func (m *mockRepository) CreateInvitation(_ context.Context, inv *projectDatamodel.Invitation) error {
	if m.createInviteErr != nil {
		return m.createInviteErr
	}
	inv.ID = m.nextInviteID
	m.nextInviteID++
	m.invitations[inv.Token] = inv
	return nil
}

func (m *mockRepository) DeleteInvitation(_ context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	for token, inv := range m.invitations {
		if inv.ID == id {
			delete(m.invitations, token)
		}
	}
	return nil
}

func (m *mockRepository) GetInvitationByToken(_ context.Context, token string) (*projectDatamodel.Invitation, error) {
	inv, ok := m.invitations[token]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (m *mockRepository) ListInvitations(_ context.Context, projectID int64) ([]*projectDatamodel.Invitation, error) {
	var out []*projectDatamodel.Invitation
	for _, inv := range m.invitations {
		if inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkInvitationAccepted(_ context.Context, token string) (bool, error) {
	if m.acceptFail {
		return false, nil
	}
	inv, ok := m.invitations[token]
	if !ok || inv.AcceptedAt != nil {
		return false, nil
	}
	now := time.Now()
	inv.AcceptedAt = &now
	return true, nil
}

// Mock Dispatcher capturing sent mail
type mockDispatcher struct {
	sent    []string
	sendErr error
}

func (m *mockDispatcher) Send(_ context.Context, to, _, _ string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *mockDispatcher) Enqueue(to, _, _ string) {
	m.sent = append(m.sent, to)
}

var _ = ginkgo.Describe("ProjectService", func() {
	var (
		service    *Service
		repo       *mockRepository
		dispatcher *mockDispatcher
		ctx        context.Context
	)

	const (
		ownerID    = int64(1)
		memberID   = int64(2)
		strangerID = int64(99)
	)

	seedProject := func() *projectDatamodel.Project {
		p := &projectDatamodel.Project{Name: "Website Redesign", OwnerID: ownerID}
		gomega.Expect(repo.CreateProject(ctx, p)).To(gomega.Succeed())
		repo.members[memberKey{p.ID, memberID}] = true
		return p
	}

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		dispatcher = &mockDispatcher{}
		ctx = context.Background()
		service = NewService(repo, dispatcher, nil, 72*time.Hour, logger.LoggerWrapper())
	})

	ginkgo.Describe("GetProject", func() {
		ginkgo.It("answers not found for a missing project", func() {
			_, err := service.GetProject(ctx, ownerID, 999)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrProjectNotFound))
		})

		ginkgo.It("answers not found for a non-member, hiding the project's existence", func() {
			p := seedProject()

			_, err := service.GetProject(ctx, strangerID, p.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrProjectNotFound))
		})

		ginkgo.It("loads the project for a member", func() {
			p := seedProject()

			loaded, err := service.GetProject(ctx, memberID, p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(loaded.Name).To(gomega.Equal("Website Redesign"))
		})
	})

	ginkgo.Describe("DeleteProject", func() {
		ginkgo.It("refuses a member who is not the owner", func() {
			p := seedProject()

			err := service.DeleteProject(ctx, memberID, p.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPermissionDenied))
			gomega.Expect(repo.projects).To(gomega.HaveKey(p.ID))
		})

		ginkgo.It("lets the owner delete", func() {
			p := seedProject()

			err := service.DeleteProject(ctx, ownerID, p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.projects).ToNot(gomega.HaveKey(p.ID))
		})
	})

	ginkgo.Describe("RemoveMember", func() {
		ginkgo.It("never removes the owner", func() {
			p := seedProject()

			err := service.RemoveMember(ctx, ownerID, p.ID, ownerID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPermissionDenied))
		})

		ginkgo.It("lets the owner remove a member", func() {
			p := seedProject()

			err := service.RemoveMember(ctx, ownerID, p.ID, memberID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.members).ToNot(gomega.HaveKey(memberKey{p.ID, memberID}))
		})

		ginkgo.It("lets a member remove themselves", func() {
			p := seedProject()

			err := service.RemoveMember(ctx, memberID, p.ID, memberID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("refuses a member removing someone else", func() {
			p := seedProject()
			repo.members[memberKey{p.ID, 3}] = true

			err := service.RemoveMember(ctx, memberID, p.ID, 3)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrPermissionDenied))
		})
	})

	ginkgo.Describe("InviteMember", func() {
		ginkgo.It("records the invitation and mails the token", func() {
			p := seedProject()

			inv, err := service.InviteMember(ctx, ownerID, p.ID, InviteMemberDTO{Email: "new@example.com"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(inv.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(dispatcher.sent).To(gomega.ConsistOf("new@example.com"))
			gomega.Expect(inv.ExpiresAt).To(gomega.BeTemporally("~", time.Now().Add(72*time.Hour), time.Minute))
		})

		ginkgo.It("rolls back the invitation when dispatch fails", func() {
			p := seedProject()
			dispatcher.sendErr = errors.New("provider unavailable")

			_, err := service.InviteMember(ctx, ownerID, p.ID, InviteMemberDTO{Email: "new@example.com"})

			gomega.Expect(err).To(gomega.HaveOccurred())
			var appErr *internal.AppError
			gomega.Expect(errors.As(err, &appErr)).To(gomega.BeTrue())
			gomega.Expect(repo.deletedIDs).To(gomega.HaveLen(1))
			gomega.Expect(repo.invitations).To(gomega.BeEmpty())
		})

		ginkgo.It("refuses a non-member inviter", func() {
			p := seedProject()

			_, err := service.InviteMember(ctx, strangerID, p.ID, InviteMemberDTO{Email: "new@example.com"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrProjectNotFound))
		})
	})

	ginkgo.Describe("AcceptInvitation", func() {
		invite := func(p *projectDatamodel.Project, email string) *Invitation {
			inv, err := service.InviteMember(ctx, ownerID, p.ID, InviteMemberDTO{Email: email})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			return inv
		}

		ginkgo.It("enrolls the invitee as a member", func() {
			p := seedProject()
			inv := invite(p, "new@example.com")

			joined, err := service.AcceptInvitation(ctx, 7, "new@example.com", AcceptInviteDTO{Token: inv.Token})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(joined.ID).To(gomega.Equal(p.ID))
			gomega.Expect(repo.members).To(gomega.HaveKey(memberKey{p.ID, 7}))
		})

		ginkgo.It("rejects an unknown token", func() {
			seedProject()

			_, err := service.AcceptInvitation(ctx, 7, "new@example.com", AcceptInviteDTO{Token: "no-such-token"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInviteNotFound))
		})

		ginkgo.It("rejects a token addressed to someone else", func() {
			p := seedProject()
			inv := invite(p, "new@example.com")

			_, err := service.AcceptInvitation(ctx, 7, "other@example.com", AcceptInviteDTO{Token: inv.Token})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInviteNotFound))
		})

		ginkgo.It("rejects an expired invitation", func() {
			p := seedProject()
			inv := invite(p, "new@example.com")
			repo.invitations[inv.Token].ExpiresAt = time.Now().Add(-time.Hour)

			_, err := service.AcceptInvitation(ctx, 7, "new@example.com", AcceptInviteDTO{Token: inv.Token})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInviteExpired))
		})

		ginkgo.It("lets only the first acceptance win", func() {
			p := seedProject()
			inv := invite(p, "new@example.com")

			_, err := service.AcceptInvitation(ctx, 7, "new@example.com", AcceptInviteDTO{Token: inv.Token})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.AcceptInvitation(ctx, 8, "new@example.com", AcceptInviteDTO{Token: inv.Token})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInviteNotFound))
		})

		ginkgo.It("treats a lost acceptance race as not found", func() {
			p := seedProject()
			inv := invite(p, "new@example.com")
			repo.acceptFail = true

			_, err := service.AcceptInvitation(ctx, 7, "new@example.com", AcceptInviteDTO{Token: inv.Token})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInviteNotFound))
		})
	})
})
