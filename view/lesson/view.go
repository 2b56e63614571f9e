package lesson

import (
	"context"
	"sync"

	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
	"github.com/openschool/campus/view"
	"github.com/openschool/campus/view/pipeline"
)

// Service is the part of the enrollment API lessons use. *client.EnrollmentService implements it.
type Service interface {
	MaterialCompletions(ctx context.Context, id string) ([]enrollment.MaterialCompletion, error)
	CompleteMaterial(ctx context.Context, enrollmentID, materialID string) error
	UncompleteMaterial(ctx context.Context, enrollmentID, materialID string) error
	MaterialData(ctx context.Context, enrollmentID, materialID string) (enrollment.MaterialData, error)
	UpdateMaterialData(ctx context.Context, enrollmentID, materialID string, data scorm.Data) (enrollment.MaterialData, error)
}

type target struct {
	enrollmentID string
	material     course.Material
}

// commit is a snapshot of the cmi data of the material its runtime was created for.
type commit struct {
	enrollmentID string
	materialID   string
	data         scorm.Data
}

type View struct {
	*view.Store[State, Action]

	svc       Service
	nav       view.Navigator
	loads     *pipeline.Subject[target]
	commits   *pipeline.Subject[commit]
	mutations *pipeline.Subject[view.Verb]

	mu      sync.Mutex
	runtime *scorm.Runtime
}

func New(ctx context.Context, svc Service, nav view.Navigator) *View {
	v := &View{Store: view.NewStore(NewState(), Reduce), svc: svc, nav: nav}
	v.loads = pipeline.New(ctx, pipeline.Switch, v.load)
	v.commits = pipeline.New(ctx, pipeline.Concat, v.commit)
	v.mutations = pipeline.New(ctx, pipeline.Exhaust, v.mutate, pipeline.WithFilter(v.idle))
	return v
}

func (v *View) idle(view.Verb) bool {
	return !v.State().Form.ProcessingState.Busy()
}

// Load opens a material of an enrollment. Commits of the previous material still queued are
// saved to that material.
func (v *View) Load(enrollmentID string, m course.Material) {
	v.loads.Next(target{enrollmentID: enrollmentID, material: m})
}

// Runtime is the SCORM API object of the loaded package, nil for other materials.
func (v *View) Runtime() *scorm.Runtime {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.runtime
}

// Complete marks a plain lesson as completed.
func (v *View) Complete() { v.mutations.Next(view.Save) }

// Uncomplete clears the completion of a plain lesson.
func (v *View) Uncomplete() { v.mutations.Next(view.Delete) }

func (v *View) load(ctx context.Context, t target) {
	l := Lesson{EnrollmentID: t.enrollmentID, Material: t.material}
	var rt *scorm.Runtime

	if t.material.IsScorm() {
		md, err := v.svc.MaterialData(ctx, t.enrollmentID, t.material.ID)
		if err != nil {
			v.loadFailed(ctx, err)
			return
		}
		l.Data = &md
		l.Completed = scorm.Completed(md.Version, md.Data)
		// the runtime only queues commits: it calls the committer with its own lock held
		rt = scorm.NewRuntime(md.Version, md.Data, scorm.CommitFunc(func(data scorm.Data) error {
			v.commits.Next(commit{enrollmentID: t.enrollmentID, materialID: t.material.ID, data: data})
			return nil
		}))
	} else {
		mcs, err := v.svc.MaterialCompletions(ctx, t.enrollmentID)
		if err != nil {
			v.loadFailed(ctx, err)
			return
		}
		for _, mc := range mcs {
			if mc.MaterialID == t.material.ID {
				l.Completed = true
			}
		}
	}

	if ctx.Err() != nil {
		return
	}
	v.mu.Lock()
	v.runtime = rt
	v.mu.Unlock()
	v.Dispatch(LoadSucceeded{Lesson: l})
}

func (v *View) loadFailed(ctx context.Context, err error) {
	view.HandleError(ctx, err, v.nav, func(f view.Failure) { v.Dispatch(LoadFailed{Code: f.Status}) })
}

func (v *View) commit(ctx context.Context, c commit) {
	v.Dispatch(Started{Verb: view.Save, MaterialID: c.materialID})
	md, err := v.svc.UpdateMaterialData(ctx, c.enrollmentID, c.materialID, c.data)
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) {
			v.Dispatch(Failed{Verb: view.Save, MaterialID: c.materialID, Failure: f})
		})
		return
	}
	v.Dispatch(DataSaved{MaterialID: c.materialID, Data: md})
}

func (v *View) mutate(ctx context.Context, verb view.Verb) {
	s := v.State()
	if s.Entity == nil || s.Entity.Material.IsScorm() {
		return
	}
	enrollmentID, materialID := s.Entity.EnrollmentID, s.Entity.Material.ID
	v.Dispatch(Started{Verb: verb, MaterialID: materialID})

	var err error
	if verb == view.Delete {
		err = v.svc.UncompleteMaterial(ctx, enrollmentID, materialID)
	} else {
		err = v.svc.CompleteMaterial(ctx, enrollmentID, materialID)
	}
	if err != nil {
		view.HandleError(ctx, err, v.nav, func(f view.Failure) {
			v.Dispatch(Failed{Verb: verb, MaterialID: materialID, Failure: f})
		})
		return
	}
	v.Dispatch(CompletionSucceeded{Verb: verb, MaterialID: materialID, Completed: verb != view.Delete})
}

func (v *View) Close() {
	v.Store.Close()
	pipeline.Group{v.loads, v.commits, v.mutations}.Close()
}

func (v *View) Wait() {
	pipeline.Group{v.loads, v.commits, v.mutations}.Wait()
}
