package mocks

//go:generate mockery --name ObjectStore --srcpkg github.com/aevon-lab/waypoint/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name KeyValueStore --srcpkg github.com/aevon-lab/waypoint/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
