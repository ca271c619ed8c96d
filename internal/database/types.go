package database

import (
	"time"
)

// File types derived from the extension
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
	FileTypeFile  = "file"
)

// FaceStatus is ordered by confidence: lower values are more trusted.
type FaceStatus int

const (
	FaceConfirmedRoot FaceStatus = 0 // confirmed by an administrator
	FaceConfirmedUser FaceStatus = 1 // confirmed by a user
	FacePredicted     FaceStatus = 2 // assigned by the recognizer
	FaceUnassigned    FaceStatus = 3 // detected, no identity yet
	FaceIgnored       FaceStatus = 4
	FaceRemoved       FaceStatus = 5
)

var faceStatusNames = map[FaceStatus]string{
	FaceConfirmedRoot: "confirmed-root",
	FaceConfirmedUser: "confirmed-user",
	FacePredicted:     "predicted",
	FaceUnassigned:    "unassigned",
	FaceIgnored:       "ignored",
	FaceRemoved:       "removed",
}

func (s FaceStatus) String() string {
	if name, ok := faceStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsGroundTruth reports whether the status is confirmed and must never be
// overwritten by automatic classification.
func (s FaceStatus) IsGroundTruth() bool {
	return s == FaceConfirmedRoot || s == FaceConfirmedUser
}

// IsRecognizable reports whether the recognizer may (re)assign the face.
func (s FaceStatus) IsRecognizable() bool {
	return s > FaceConfirmedUser && s < FaceIgnored
}

// ParseFaceStatus accepts a status name or its numeric value.
func ParseFaceStatus(s string) (FaceStatus, bool) {
	for status, name := range faceStatusNames {
		if name == s {
			return status, true
		}
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '5' {
		return FaceStatus(s[0] - '0'), true
	}
	return 0, false
}

// Root anchors a folder tree to a real filesystem directory
type Root struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	RealPath string    `json:"real_path"` // always ends with a single "/"
	FolderID int64     `json:"folder_id"`
	Created  time.Time `json:"created_at"`
}

// Folder is a node in the virtual directory tree
type Folder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  int64  `json:"parent_id,omitempty"` // 0 marks a root folder
	FileCount int    `json:"file_count"`
	Length    int64  `json:"length"`
	Path      string `json:"path"`
}

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentID == 0
}

// File is a tracked media item. FileID doubles as the on-disk filename stem.
type File struct {
	ID           int64     `json:"id"`
	FileID       string    `json:"file_id"`
	Name         string    `json:"name"`
	FolderID     int64     `json:"folder_id"`
	Type         string    `json:"type"`
	Format       string    `json:"format"` // extension without the dot, as found on disk
	Length       int64     `json:"length"`
	Starred      bool      `json:"starred"`
	Deleted      bool      `json:"deleted"`
	Timestamp    time.Time `json:"timestamp"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Orientation  int       `json:"orientation"`
	GeoTagID     int64     `json:"geotag_id,omitempty"` // 0 when absent
	Metadata     string    `json:"metadata"`            // JSON blob
	ScannedFaces bool      `json:"scanned_faces"`
}

// FileName returns the on-disk name of the file.
func (f *File) FileName() string {
	if f.Format == "" {
		return f.FileID
	}
	return f.FileID + "." + f.Format
}

// Face is a detected face region. Rect coordinates are the centre of the
// region in full-resolution image pixels; R is the rotation in degrees.
type Face struct {
	ID          int64      `json:"id"`
	FileID      int64      `json:"file_id"`
	PersonID    int64      `json:"person_id"`
	RectX       float64    `json:"rect_x"`
	RectY       float64    `json:"rect_y"`
	RectW       float64    `json:"rect_w"`
	RectH       float64    `json:"rect_h"`
	RectR       float64    `json:"rect_r"`
	EyesFound   bool       `json:"eyes_found"`
	EyeLX       float64    `json:"eye_l_x"` // relative to the rect centre
	EyeLY       float64    `json:"eye_l_y"`
	EyeRX       float64    `json:"eye_r_x"`
	EyeRY       float64    `json:"eye_r_y"`
	Uncertainty float64    `json:"uncertainty"` // -1 until classified
	Status      FaceStatus `json:"status"`
	Thumbnail   []byte     `json:"-"`
}

// Person is a known identity faces can be assigned to
type Person struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	GroupID   int64     `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonGroup is a display category for people
type PersonGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GeoTag is a point location attached to a file
type GeoTag struct {
	ID        int64     `json:"id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AreaID    int64     `json:"area_id,omitempty"` // 0 when not clustered
	CreatedAt time.Time `json:"created_at"`
}

// GeoTagArea is a named circular region geotags can be clustered into
type GeoTagArea struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Radius    float64   `json:"radius"` // metres
	CreatedAt time.Time `json:"created_at"`
}

// Album is a user-curated, nestable collection of files
type Album struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  int64     `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
