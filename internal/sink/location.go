/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package sink

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7/pkg/s3utils"
)

// Catalog storage property keys understood by the location resolver.
const (
	PropDefaultFS          = "fs.defaultFS"
	PropObjectStoreSchemes = "storage.object_store_schemes"
	PropBrokerSchemes      = "storage.broker_schemes"
)

// DefaultStagingRoot is the directory staged writes are placed under, per user.
const DefaultStagingRoot = "/tmp/.hive_staging"

// objectStoreSchemes maps object store URI schemes to the scheme the execution
// engine addresses them with.
var objectStoreSchemes = map[string]string{
	"s3":    "s3",
	"s3a":   "s3",
	"s3n":   "s3",
	"oss":   "s3",
	"cos":   "s3",
	"cosn":  "s3",
	"obs":   "s3",
	"bos":   "s3",
	"gs":    "s3",
	"gcs":   "s3",
	"minio": "s3",
	"azure": "azure",
	"abfs":  "abfs",
	"abfss": "abfss",
	"wasb":  "wasb",
	"wasbs": "wasbs",
}

var brokerSchemes = map[string]struct{}{
	"ofs": {},
	"gfs": {},
	"jfs": {},
}

var filesystemSchemes = map[string]struct{}{
	"hdfs":   {},
	"viewfs": {},
	"file":   {},
}

// LocationResolver classifies storage locations and decides where the engine
// writes: directly to the target on object stores, to a per-user staging
// directory everywhere else.
type LocationResolver struct {
	StorageProperties map[string]string
	// BrokerName, when set, routes filesystem locations through a broker.
	BrokerName  string
	StagingRoot string
	// NewStagingID returns the leaf directory name of a staging path.
	NewStagingID func() string
}

// NewLocationResolver returns a resolver for the given catalog.
func NewLocationResolver(catalog Catalog, stagingRoot string) *LocationResolver {
	r := &LocationResolver{StagingRoot: stagingRoot}
	if catalog != nil {
		r.StorageProperties = catalog.StorageProperties()
		r.BrokerName = catalog.BrokerName()
	}
	return r
}

// ResolveTable resolves the write location of a table (or a new partition)
// root. user scopes the staging directory for staged writes.
func (r *LocationResolver) ResolveTable(location, user string) (LocationSpec, error) {
	u, fileType, err := r.classify(location)
	if err != nil {
		return LocationSpec{}, err
	}
	target := qualifiedForm(location, u)

	if fileType == FileTypeObjectStore {
		native := nativeScheme(u.Scheme) + target[strings.Index(target, "://"):]
		return LocationSpec{
			WritePath:         native,
			OriginalWritePath: target,
			TargetPath:        target,
			FileType:          fileType,
		}, nil
	}

	if user == "" {
		return LocationSpec{}, &ErrLocationResolution{Location: location, Msg: "current user is required to build a staging path"}
	}
	staging := url.URL{
		Scheme: u.Scheme,
		User:   u.User,
		Host:   u.Host,
		Path:   path.Join(r.stagingRoot(), user, r.stagingID()),
	}
	writePath := staging.String()
	return LocationSpec{
		WritePath:         writePath,
		OriginalWritePath: writePath,
		TargetPath:        target,
		FileType:          fileType,
	}, nil
}

// ResolvePartition resolves the location of an existing partition. Partitions
// are never staged: write and target path are the partition location itself.
func (r *LocationResolver) ResolvePartition(location string) (LocationSpec, error) {
	u, fileType, err := r.classify(location)
	if err != nil {
		return LocationSpec{}, err
	}
	target := qualifiedForm(location, u)
	return LocationSpec{
		WritePath:  target,
		TargetPath: target,
		FileType:   fileType,
	}, nil
}

// qualifiedForm keeps a location verbatim unless it had to be qualified
// against fs.defaultFS. Paths are never re-escaped.
func qualifiedForm(location string, u *url.URL) string {
	location = strings.TrimSpace(location)
	if strings.Contains(location, "://") {
		return location
	}
	authority := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}
	return authority.String() + u.Path
}

// FileTypeOf classifies a location without resolving write paths.
func (r *LocationResolver) FileTypeOf(location string) (FileType, error) {
	_, fileType, err := r.classify(location)
	return fileType, err
}

func (r *LocationResolver) classify(location string) (*url.URL, FileType, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, "", &ErrLocationResolution{Location: location, Msg: "location is empty"}
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", &ErrLocationResolution{Location: location, Msg: "malformed location", Err: err}
	}
	if u.Scheme == "" {
		u, err = r.qualify(location, u)
		if err != nil {
			return nil, "", err
		}
	}
	scheme := strings.ToLower(u.Scheme)
	u.Scheme = scheme

	switch {
	case r.isObjectStore(scheme):
		if u.Host == "" {
			return nil, "", &ErrLocationResolution{Location: location, Msg: "object store location has no bucket"}
		}
		if nativeScheme(scheme) == "s3" {
			if err := s3utils.CheckValidBucketName(u.Host); err != nil {
				return nil, "", &ErrLocationResolution{Location: location, Msg: "invalid bucket name", Err: err}
			}
		}
		return u, FileTypeObjectStore, nil
	case r.isBrokerScheme(scheme):
		return u, FileTypeBroker, nil
	case isFilesystemScheme(scheme):
		if r.BrokerName != "" {
			return u, FileTypeBroker, nil
		}
		return u, FileTypeFilesystem, nil
	}
	return nil, "", &ErrLocationResolution{Location: location, Msg: "unknown storage scheme " + scheme}
}

// qualify resolves a scheme-less absolute path against fs.defaultFS.
func (r *LocationResolver) qualify(location string, u *url.URL) (*url.URL, error) {
	defaultFS := strings.TrimSpace(r.StorageProperties[PropDefaultFS])
	if defaultFS == "" || !strings.HasPrefix(u.Path, "/") {
		return nil, &ErrLocationResolution{Location: location, Msg: "location has no scheme and " + PropDefaultFS + " is not set"}
	}
	base, err := url.Parse(defaultFS)
	if err != nil || base.Scheme == "" {
		return nil, &ErrLocationResolution{Location: location, Msg: "malformed " + PropDefaultFS, Err: err}
	}
	return &url.URL{Scheme: base.Scheme, User: base.User, Host: base.Host, Path: u.Path}, nil
}

func (r *LocationResolver) isObjectStore(scheme string) bool {
	if _, ok := objectStoreSchemes[scheme]; ok {
		return true
	}
	return propertyListContains(r.StorageProperties[PropObjectStoreSchemes], scheme)
}

func (r *LocationResolver) isBrokerScheme(scheme string) bool {
	if _, ok := brokerSchemes[scheme]; ok {
		return true
	}
	return propertyListContains(r.StorageProperties[PropBrokerSchemes], scheme)
}

// nativeScheme returns the scheme the engine uses for an object store. Extra
// schemes configured on the catalog speak the S3 protocol.
func nativeScheme(scheme string) string {
	if native, ok := objectStoreSchemes[scheme]; ok {
		return native
	}
	return "s3"
}

func isFilesystemScheme(scheme string) bool {
	_, ok := filesystemSchemes[scheme]
	return ok
}

func propertyListContains(list, item string) bool {
	for _, v := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(v), item) {
			return true
		}
	}
	return false
}

func (r *LocationResolver) stagingRoot() string {
	if r.StagingRoot == "" {
		return DefaultStagingRoot
	}
	return r.StagingRoot
}

func (r *LocationResolver) stagingID() string {
	if r.NewStagingID != nil {
		return r.NewStagingID()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
