package process

import (
	"reflect"

	"google.golang.org/protobuf/types/known/structpb"
)

// An Annotator is invoked on fork and exec transitions to attach or
// propagate metadata. Annotator instances are also the annotation
// values themselves: each node holds at most one instance per
// concrete Annotator type.
//
// Hooks run synchronously while the tree's exclusive lock is held and
// must only use the supplied AnnotationStore. Calling a mutating tree
// method from a hook deadlocks.
type Annotator interface {
	AnnotateFork(store AnnotationStore, parent, child *Process) error
	AnnotateExec(store AnnotationStore, orig_process, new_process *Process) error

	// A serializable view of this annotation for the audit log, or
	// nil when there is nothing to report.
	Proto() *structpb.Struct
}

// Annotators implementing this are also invoked for processes
// discovered by Backfill. parent is nil for backfilled roots.
type BackfillAnnotator interface {
	AnnotateBackfill(store AnnotationStore, parent, process *Process) error
}

// The annotation read/write contract. The ProcessTree implements it
// with locking; hooks receive a view that runs under the lock already
// held by the handler.
type AnnotationStore interface {
	// Sets or overwrites the slot for the annotation's concrete type.
	AnnotateProcess(process *Process, annotation Annotator)
	LookupAnnotation(process *Process, kind reflect.Type) (Annotator, bool)
	ClearAnnotation(process *Process, kind reflect.Type)
}

func annotationKind[T Annotator]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Typed accessor for the annotation slot of type T. T must be the
// concrete type that was stored, usually a pointer type.
func GetAnnotation[T Annotator](store AnnotationStore, process *Process) (T, bool) {
	var zero T

	annotation, pres := store.LookupAnnotation(process, annotationKind[T]())
	if !pres {
		return zero, false
	}

	result, ok := annotation.(T)
	if !ok {
		return zero, false
	}
	return result, true
}

func ClearAnnotation[T Annotator](store AnnotationStore, process *Process) {
	store.ClearAnnotation(process, annotationKind[T]())
}

func HasAnnotation[T Annotator](store AnnotationStore, process *Process) bool {
	_, pres := GetAnnotation[T](store, process)
	return pres
}

// Implements AnnotationStore for hooks. The caller already holds the
// tree's exclusive lock.
type lockedStore struct {
	tree *ProcessTree
}

func (self lockedStore) AnnotateProcess(process *Process, annotation Annotator) {
	self.tree.annotateLocked(process, annotation)
}

func (self lockedStore) LookupAnnotation(
	process *Process, kind reflect.Type) (Annotator, bool) {
	return self.tree.lookupLocked(process, kind)
}

func (self lockedStore) ClearAnnotation(process *Process, kind reflect.Type) {
	self.tree.clearLocked(process, kind)
}
