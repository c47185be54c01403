package program

// Universe holds every library and the class table. After loading it is
// read-only except for the canonicalization table, so one Universe can
// serve concurrent deserializations.
type Universe struct {
	libraries map[string]*Library
	libOrder  []*Library
	classes   map[CID]*Class
	nextCID   CID

	canon canonTable
}

var coreClasses = []struct {
	name string
	cid  CID
}{
	{"dynamic", DynamicCID},
	{"Null", NullCID},
	{"bool", BoolCID},
	{"int", IntegerCID},
	{"double", DoubleCID},
	{"String", StringCID},
	{"_ImmutableList", ImmutableArrayCID},
	{"Type", TypeCID},
	{"TypeArguments", TypeArgumentsCID},
	{"_Closure", ClosureCID},
	{"Object", ObjectCID},
	{"_List", ArrayCID},
	{"TypeParameter", TypeParameterCID},
}

// NewUniverse returns a universe containing only the core library.
func NewUniverse() *Universe {
	u := &Universe{
		libraries: make(map[string]*Library),
		classes:   make(map[CID]*Class),
		nextCID:   FirstUserCID,
		canon:     newCanonTable(),
	}
	core := u.AddLibrary(CoreLibraryName)
	for _, c := range coreClasses {
		u.registerClass(core, c.name, c.cid)
	}
	return u
}

// Core returns the built-in library.
func (u *Universe) Core() *Library {
	return u.libraries[CoreLibraryName]
}

// AddLibrary returns the library called name, creating it if needed.
func (u *Universe) AddLibrary(name string) *Library {
	if lib, ok := u.libraries[name]; ok {
		return lib
	}
	lib := &Library{Name: name, classes: make(map[string]*Class)}
	lib.TopLevel = &Class{ID: u.allocateCID(), Library: lib}
	u.classes[lib.TopLevel.ID] = lib.TopLevel
	u.libraries[name] = lib
	u.libOrder = append(u.libOrder, lib)
	return lib
}

// LookupLibrary returns nil when no library is called name.
func (u *Universe) LookupLibrary(name string) *Library {
	return u.libraries[name]
}

// Libraries returns the libraries in creation order.
func (u *Universe) Libraries() []*Library {
	return u.libOrder
}

// AddClass declares a class in lib and assigns it the next free cid. An
// existing class with the same name is returned unchanged.
func (u *Universe) AddClass(lib *Library, name string) *Class {
	if cls, ok := lib.classes[name]; ok {
		return cls
	}
	return u.registerClass(lib, name, u.allocateCID())
}

func (u *Universe) registerClass(lib *Library, name string, cid CID) *Class {
	cls := &Class{ID: cid, Name: name, Library: lib}
	lib.classes[name] = cls
	lib.order = append(lib.order, cls)
	u.classes[cid] = cls
	return cls
}

func (u *Universe) allocateCID() CID {
	cid := u.nextCID
	u.nextCID++
	return cid
}

// ClassAt returns the class with the given cid, or nil.
func (u *Universe) ClassAt(cid CID) *Class {
	return u.classes[cid]
}

// HasValidClassAt reports whether cid names a class.
func (u *Universe) HasValidClassAt(cid CID) bool {
	return u.classes[cid] != nil
}
