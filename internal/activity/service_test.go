package activity

import (
	"context"
	"testing"

	"github.com/frahmantamala/taskboard/internal"
	activityDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/activity"
	"github.com/frahmantamala/taskboard/internal/core/events"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestActivity(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Activity Module Suite")
}

// Mock Repository collecting created entries
type mockRepository struct {
	entries []*activityDatamodel.Entry
}

func (m *mockRepository) Create(_ context.Context, entry *activityDatamodel.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRepository) ListByProject(_ context.Context, projectID int64, limit, offset int) ([]*activityDatamodel.Entry, error) {
	var out []*activityDatamodel.Entry
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockMembers struct {
	members map[int64][]int64
}

func (m *mockMembers) IsMember(_ context.Context, projectID, userID int64) (bool, error) {
	for _, id := range m.members[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

var _ = ginkgo.Describe("ActivityService", func() {
	const (
		projectID  = int64(1)
		memberID   = int64(10)
		strangerID = int64(99)
	)

	var (
		service *Service
		repo    *mockRepository
		bus     *events.EventBus
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		repo = &mockRepository{}
		ctx = context.Background()
		members := &mockMembers{members: map[int64][]int64{projectID: {memberID}}}
		service = NewService(repo, members, logger.LoggerWrapper())
		bus = events.NewEventBus(logger.LoggerWrapper())
		service.RegisterSubscribers(bus)
	})

	ginkgo.Describe("event recording", func() {
		ginkgo.It("persists an entry for a board event", func() {
			event := events.NewActivityEvent(events.EventCardCreated, projectID, memberID, "card", 7, "write docs")

			gomega.Expect(bus.PublishSync(ctx, event)).To(gomega.Succeed())

			gomega.Expect(repo.entries).To(gomega.HaveLen(1))
			entry := repo.entries[0]
			gomega.Expect(entry.ProjectID).To(gomega.Equal(projectID))
			gomega.Expect(entry.ActorID).To(gomega.Equal(memberID))
			gomega.Expect(entry.Action).To(gomega.Equal(events.EventCardCreated))
			gomega.Expect(entry.EntityType).To(gomega.Equal("card"))
			gomega.Expect(entry.EntityID).To(gomega.Equal(int64(7)))
			gomega.Expect(entry.Detail).To(gomega.Equal("write docs"))
		})

		ginkgo.It("records every subscribed event type", func() {
			for _, eventType := range recordedEvents {
				event := events.NewActivityEvent(eventType, projectID, memberID, "entity", 1, "")
				gomega.Expect(bus.PublishSync(ctx, event)).To(gomega.Succeed())
			}

			gomega.Expect(repo.entries).To(gomega.HaveLen(len(recordedEvents)))
		})

		ginkgo.It("rejects an event without a project id", func() {
			event := events.NewActivityEvent(events.EventCardCreated, 0, memberID, "card", 7, "")

			err := bus.PublishSync(ctx, event)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(repo.entries).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("ListActivities", func() {
		record := func(n int) {
			for i := 0; i < n; i++ {
				event := events.NewActivityEvent(events.EventCardUpdated, projectID, memberID, "card", int64(i), "")
				gomega.Expect(bus.PublishSync(ctx, event)).To(gomega.Succeed())
			}
		}

		ginkgo.It("hides the history from non-members behind not found", func() {
			_, err := service.ListActivities(ctx, strangerID, projectID, 0, 0)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrProjectNotFound))
		})

		ginkgo.It("applies the default limit when none is given", func() {
			record(defaultLimit + 10)

			entries, err := service.ListActivities(ctx, memberID, projectID, 0, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(entries).To(gomega.HaveLen(defaultLimit))
		})

		ginkgo.It("caps an oversized limit", func() {
			record(maxLimit + 10)

			entries, err := service.ListActivities(ctx, memberID, projectID, maxLimit+100, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(entries).To(gomega.HaveLen(maxLimit))
		})

		ginkgo.It("pages with limit and offset", func() {
			record(5)

			entries, err := service.ListActivities(ctx, memberID, projectID, 2, 4)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(entries).To(gomega.HaveLen(1))
		})
	})
})
